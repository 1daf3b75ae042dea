package coverage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// A DB is a snapshot of a covergroup that can be stored and read back.
type DB struct {
	RunID    string      `json:"run_id"`
	Group    string      `json:"group"`
	Created  time.Time   `json:"created"`
	Samples  uint64      `json:"samples"`
	Coverage float64     `json:"coverage"`
	Bins     []BinRecord `json:"bins"`
}

// Snapshot captures the current state of a covergroup. A random run ID is
// generated if runID is empty.
func Snapshot[T any](g *Covergroup[T], runID string) DB {
	if runID == "" {
		runID = uuid.NewString()
	}

	return DB{
		RunID:    runID,
		Group:    g.Name(),
		Created:  time.Now(),
		Samples:  g.Samples(),
		Coverage: g.Coverage(),
		Bins:     g.Bins(),
	}
}

// WriteDB stores the snapshot as JSON. Files whose name ends with .zst are
// compressed with zstd.
func WriteDB(path string, db DB) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f

	if strings.HasSuffix(path, ".zst") {
		var enc *zstd.Encoder

		enc, err = zstd.NewWriter(f)
		if err != nil {
			return err
		}

		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()

		w = enc
	}

	e := json.NewEncoder(w)
	e.SetIndent("", "  ")

	return e.Encode(db)
}

// ReadDB reads a snapshot written by WriteDB.
func ReadDB(path string) (DB, error) {
	var db DB

	f, err := os.Open(path)
	if err != nil {
		return db, err
	}
	defer f.Close()

	var r io.Reader = f

	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return db, err
		}
		defer dec.Close()

		r = dec
	}

	if err := json.NewDecoder(r).Decode(&db); err != nil {
		return db, fmt.Errorf("reading coverage database %s: %w", path, err)
	}

	return db, nil
}
