// Package id generates identifiers for events, processes and items.
package id

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var (
	generatorMutex        sync.Mutex
	generatorInstantiated bool
	generator             IDGenerator
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	// Generate an ID
	Generate() string
}

// UseSequentialIDGenerator configures the ID generator to generate IDs in
// sequential order. Sequential IDs are reproducible across runs with the same
// seed.
func UseSequentialIDGenerator() {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if generatorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	generator = &sequentialIDGenerator{}
	generatorInstantiated = true
}

// UseParallelIDGenerator configures the ID generator to generate globally
// unique IDs. The IDs generated will not be deterministic anymore.
func UseParallelIDGenerator() {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if generatorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	generator = parallelIDGenerator{}
	generatorInstantiated = true
}

// Get returns the ID generator used in the current run.
func Get() IDGenerator {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if !generatorInstantiated {
		generator = &sequentialIDGenerator{}
		generatorInstantiated = true
	}

	return generator
}

// Generate returns a new ID from the current generator.
func Generate() string {
	return Get().Generate()
}

// NewSequentialIDGenerator returns a standalone sequential generator that does
// not share state with the global one.
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(idNumber, 10)
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
