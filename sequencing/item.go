// Package sequencing turns stimulus into a stream of items for the driver.
package sequencing

import (
	"fmt"

	"github.com/sarchlab/vaiverif/sim/id"
	"github.com/sarchlab/vaiverif/sim/process"
	"github.com/sarchlab/vaiverif/vai"
)

// An Item is one operation travelling from a sequence to the driver.
type Item struct {
	ID       string
	Name     string
	Sequence string
	Index    int
	Op       vai.Operation

	granted *process.Event
	ready   *process.Event
	done    *process.Event
}

// NewItem creates an empty item.
func NewItem(name string) *Item {
	return &Item{
		ID:      id.Generate(),
		Name:    name,
		granted: process.NewEvent(name + ".granted"),
		ready:   process.NewEvent(name + ".ready"),
		done:    process.NewEvent(name + ".done"),
	}
}

// Done tells if the driver has finished the item.
func (i *Item) Done() bool {
	return i.done.IsSet()
}

func (i *Item) String() string {
	return fmt.Sprintf("%s[%d] : Mode: %d Key: 0x%s Data: 0x%s",
		i.Sequence, i.Index, i.Op.Mode, vai.Hex(i.Op.Key), vai.Hex(i.Op.Data))
}
