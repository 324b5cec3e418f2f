package review

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time so staleness and timestamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the wall-clock time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces unique identifiers, e.g. for correlating remote calls.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
