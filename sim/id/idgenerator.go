// Package id generates identifiers for traced transactions and recording
// sessions.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	Generate() string
}

var defaultGenerator IDGenerator = NewSequentialIDGenerator()

// Generate returns a new ID from the default generator. IDs are sequential so
// that traces of two identical runs compare equal.
func Generate() string {
	return defaultGenerator.Generate()
}

// NewSequentialIDGenerator returns a generator that counts from 1.
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewUniqueIDGenerator returns a generator whose IDs are globally unique,
// suitable for naming output files and recording sessions.
func NewUniqueIDGenerator() IDGenerator {
	return uniqueIDGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(idNumber, 10)
}

type uniqueIDGenerator struct{}

func (uniqueIDGenerator) Generate() string {
	return xid.New().String()
}
