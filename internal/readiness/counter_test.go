// SPDX-License-Identifier: MPL-2.0

package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_EmptyIsImmediatelyReady(t *testing.T) {
	t.Parallel()

	c := NewCounter(0)
	select {
	case <-c.Done():
	default:
		t.Fatal("Done() should already be closed for an empty counter")
	}
	assert.Equal(t, VerdictReady, c.Verdict())
}

func TestCounter_DecrementToZeroYieldsReady(t *testing.T) {
	t.Parallel()

	c := NewCounter(3)
	c.Decrement(1)
	c.Decrement(1)
	select {
	case <-c.Done():
		t.Fatal("should not be decided yet")
	default:
	}
	c.Decrement(1)
	<-c.Done()
	assert.Equal(t, VerdictReady, c.Verdict())
}

func TestCounter_ForceToZeroYieldsTimeout(t *testing.T) {
	t.Parallel()

	c := NewCounter(2)
	c.ForceToZero()
	<-c.Done()
	assert.Equal(t, VerdictTimeout, c.Verdict())

	// Subsequent Decrement must not flip the verdict.
	c.Decrement(2)
	assert.Equal(t, VerdictTimeout, c.Verdict())
}

func TestCounter_ReadyWinsRaceOverLateTimeout(t *testing.T) {
	t.Parallel()

	c := NewCounter(1)
	c.Decrement(1)
	<-c.Done()
	require.Equal(t, VerdictReady, c.Verdict())

	c.ForceToZero()
	assert.Equal(t, VerdictReady, c.Verdict(), "first writer wins: Ready must not be overwritten by a late timeout")
}

func TestCounter_FirstWriterWinsUnderConcurrency(t *testing.T) {
	t.Parallel()

	for range 200 {
		c := NewCounter(1)
		done := make(chan struct{})
		go func() { c.Decrement(1); close(done) }()
		go c.ForceToZero()
		<-done
		<-c.Done()
		// Exactly one verdict must stick; both goroutines racing the same
		// position must never leave the counter pending.
		assert.NotEqual(t, VerdictPending, c.Verdict())
	}
}
