package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/vaiverif/sim/id"
)

// Progress is the state of a progress bar as served by the monitor.
type Progress struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// A ProgressBar counts the items of a sequence. An item is in progress from
// the moment it is granted until the driver is done with it.
type ProgressBar struct {
	mu sync.Mutex
	p  Progress
}

func newProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{p: Progress{
		ID:        id.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}}
}

// Grant marks n more items as in progress.
func (b *ProgressBar) Grant(n uint64) {
	b.mu.Lock()
	b.p.InProgress += n
	b.mu.Unlock()
}

// Finish moves n items from in progress to finished.
func (b *ProgressBar) Finish(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.p.InProgress {
		n = b.p.InProgress
	}

	b.p.InProgress -= n
	b.p.Finished += n
}

// Done tells if all the items are finished.
func (b *ProgressBar) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.p.Finished >= b.p.Total
}

// Snapshot returns the current state of the bar.
func (b *ProgressBar) Snapshot() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.p
}
