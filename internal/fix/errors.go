package fix

import "errors"

// ErrTargetUnreadable aborts a fix when the target file cannot be read.
var ErrTargetUnreadable = errors.New("target file is unreadable")

// ErrRollbackFailed means the baseline could not be restored after a failed
// attempt. The target may be left modified.
var ErrRollbackFailed = errors.New("restore baseline failed")

// AttemptsExhausted is the error text of a fix that used up every attempt.
const AttemptsExhausted = "All fix attempts failed"
