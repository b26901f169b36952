package cache

import (
	"context"
	"time"
)

// Noop is a Store that caches nothing. Every Get is a miss.
type Noop struct{}

// NewNoop creates a no-op Store.
func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) Get(context.Context, string) ([]byte, bool)             { return nil, false }
func (*Noop) Set(context.Context, string, []byte, time.Duration)     {}
func (*Noop) Delete(context.Context, string)                         {}
func (*Noop) Close() error                                           { return nil }
