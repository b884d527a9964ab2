package engine

import (
	"errors"
	"fmt"
)

// RuntimeError reports a failure while replaying or hosting a game.
// Game transitions themselves never fail.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string

	// Seq is the journal position the error refers to, if any.
	Seq int64

	Details map[string]string
}

// RuntimeErrorCode categorises runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDivergence means a replayed state does not match the
	// fingerprint recorded for it.
	ErrCodeDivergence RuntimeErrorCode = "REPLAY_DIVERGENCE"

	// ErrCodeBadJournal means a journal entry or base snapshot could not
	// be decoded.
	ErrCodeBadJournal RuntimeErrorCode = "BAD_JOURNAL"
)

func (e *RuntimeError) Error() string {
	if e.Seq != 0 {
		return fmt.Sprintf("%s: %s (seq=%d)", e.Code, e.Message, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDivergenceError reports whether err is a replay divergence.
func IsDivergenceError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeDivergence
	}
	return false
}

// IsBadJournalError reports whether err is an undecodable journal.
func IsBadJournalError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeBadJournal
	}
	return false
}

func newDivergenceError(seq int64, want, got string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDivergence,
		Message: "replayed state does not match recorded fingerprint",
		Seq:     seq,
		Details: map[string]string{
			"want": want,
			"got":  got,
		},
	}
}

func newBadJournalError(seq int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBadJournal,
		Message: err.Error(),
		Seq:     seq,
	}
}
