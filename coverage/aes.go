package coverage

import (
	"lukechampine.com/uint128"

	"github.com/sarchlab/vaiverif/vai"
)

// NewAESCovergroup creates the covergroup of the AES operations: one
// coverpoint per mode, one per boundary key, and the crosses of the modes
// with the boundary keys.
func NewAESCovergroup(name string) *Covergroup[vai.Operation] {
	g := NewCovergroup[vai.Operation](name)

	enc := g.AddCoverpoint("enc", NewBin("enc", func(op vai.Operation) bool {
		return op.Mode == vai.Encrypt
	}))
	dec := g.AddCoverpoint("dec", NewBin("dec", func(op vai.Operation) bool {
		return op.Mode == vai.Decrypt
	}))
	key0 := g.AddCoverpoint("key0", NewBin("key0", func(op vai.Operation) bool {
		return op.Key.IsZero()
	}))
	keyF := g.AddCoverpoint("keyF", NewBin("keyF", func(op vai.Operation) bool {
		return op.Key.Equals(uint128.Max)
	}))

	g.AddCross("encXkey0", enc, key0)
	g.AddCross("encXkeyF", enc, keyF)
	g.AddCross("decXkey0", dec, key0)
	g.AddCross("decXkeyF", dec, keyF)

	return g
}
