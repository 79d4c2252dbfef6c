package idgen

import "github.com/google/uuid"

// NewFunc produces a new globally unique identifier. Tests may replace it to
// obtain deterministic ids.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier as string.
func New() string { return NewFunc() }
