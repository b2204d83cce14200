package beatcallback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tuurlijk/knyst/ktime"
)

func TestHandleFreeIsObservedByCallback(t *testing.T) {
	cb, handle := NewCallback(func(ktime.Superbeats, Issuer) Result { return Done() })
	assert.False(t, cb.IsFree())

	handle.Free()
	assert.True(t, cb.IsFree())

	// idempotent, safe from "another goroutine"
	handle.Free()
	assert.True(t, cb.IsFree())
}

func TestZeroHandleFreeIsNoOp(t *testing.T) {
	var h Handle
	assert.NotPanics(t, func() { h.Free() })
}

func TestStartBeatConstructors(t *testing.T) {
	abs := Absolute(ktime.NewSuperbeats(4, 0))
	assert.Equal(t, StartAbsolute, abs.Kind)

	mul := Multiple(ktime.NewSuperbeats(4, 0))
	assert.Equal(t, StartMultiple, mul.Kind)
}

func TestResultHelpers(t *testing.T) {
	done := Done()
	assert.True(t, done.Finished)

	again := Again(ktime.NewSuperbeats(1, 0))
	assert.False(t, again.Finished)
	assert.Equal(t, int64(1), again.Delta.Whole())
}
