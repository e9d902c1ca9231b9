package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockStateFailLadder(t *testing.T) {
	t.Parallel()

	state := LockState{}

	for i := 1; i <= LockoutThreshold; i++ {
		state = state.Fail()
		require.Equal(t, i, state.FailedLogins)
		require.False(t, state.AccountLocked, "attempt %d must not lock", i)
	}

	// The threshold+1-th consecutive failure flips the lock.
	state = state.Fail()
	require.Equal(t, LockoutThreshold+1, state.FailedLogins)
	require.True(t, state.AccountLocked)
}

func TestLockStateFailStaysLocked(t *testing.T) {
	t.Parallel()

	state := LockState{FailedLogins: 9, AccountLocked: true}
	state = state.Fail()
	require.True(t, state.AccountLocked)
	require.Equal(t, 10, state.FailedLogins)
}

func TestLockStateReset(t *testing.T) {
	t.Parallel()

	state := LockState{FailedLogins: 6, AccountLocked: true}
	state = state.Reset()
	require.Equal(t, 0, state.FailedLogins)
	require.False(t, state.AccountLocked)
}

func TestLockStateRejects(t *testing.T) {
	t.Parallel()

	require.False(t, LockState{FailedLogins: LockoutThreshold}.Rejects())
	require.True(t, LockState{FailedLogins: 6, AccountLocked: true}.Rejects())
}
