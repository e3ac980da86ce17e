package idgen

import "github.com/google/uuid"

// NewFunc produces identifiers; tests replace it with a deterministic stub.
var NewFunc = func() string { return uuid.New().String() }

// New returns a globally unique identifier string.
func New() string { return NewFunc() }
