package service

// LockoutThreshold is the number of consecutive failed logins an account may
// accumulate before the lock engages; the threshold+1-th failure locks it.
const LockoutThreshold = 5

// LockState is the slice of a user record the lockout policy operates on.
type LockState struct {
	FailedLogins  int
	AccountLocked bool
}

// Fail returns the state after one more failed login attempt. The counter
// advances by one and the lock engages once it exceeds LockoutThreshold, so
// the 6th consecutive failure is the one that flips the lock.
func (s LockState) Fail() LockState {
	s.FailedLogins++
	if s.FailedLogins > LockoutThreshold {
		s.AccountLocked = true
	}
	return s
}

// Reset returns the state after a successful login: counter cleared, lock
// released.
func (s LockState) Reset() LockState {
	return LockState{}
}

// Rejects reports whether a login attempt must be refused before any
// credential verification happens. A locked account never gets a
// verification attempt, with the correct password or otherwise.
func (s LockState) Rejects() bool {
	return s.AccountLocked
}
