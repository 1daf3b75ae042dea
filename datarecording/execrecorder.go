package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is one property of the execution of the program.
type ExecInfo struct {
	Property string
	Value    string
}

const timeLayout = "2006-01-02 15:04:05.000000000"

// execRecorder records when and how the program ran.
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{recorder: recorder}
	recorder.CreateTable(ExecTable, ExecInfo{})
	e.start()

	return e
}

func (e *execRecorder) start() {
	e.add("Start Time", time.Now().Format(timeLayout))
	e.add("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		cwd = err.Error()
	}

	e.add("Working Directory", cwd)
}

func (e *execRecorder) add(property, value string) {
	e.entries = append(e.entries, ExecInfo{Property: property, Value: value})
}

// End writes the execution record along with the end time.
func (e *execRecorder) End() {
	e.add("End Time", time.Now().Format(timeLayout))

	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTable, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
