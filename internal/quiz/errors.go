package quiz

import (
	"errors"
	"fmt"
)

var (
	// ErrTestNotFound is returned when a test id or public UID is unknown.
	ErrTestNotFound = errors.New("test not found")
	// ErrSubjectNotFound indicates the start request names an unknown subject.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrQuestionNotFound indicates a submitted question id does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionNotInTest indicates the question was never attached to the test.
	ErrQuestionNotInTest = errors.New("question not in this test")
	// ErrTestNotActive rejects mutations once a test is completed or discarded.
	ErrTestNotActive = errors.New("test is not active")
	// ErrTestNotCompleted guards review/summary reads that need a finalized test.
	ErrTestNotCompleted = errors.New("test not completed yet")
	// ErrNotInteractive rejects answer submissions to display-mode tests.
	ErrNotInteractive = errors.New("submissions are only allowed in interactive mode")
	// ErrTimeExpired rejects submissions past the total-test deadline.
	ErrTimeExpired = errors.New("time expired")
	// ErrBadOption indicates a selected option outside A-D.
	ErrBadOption = errors.New("selected_option must be A/B/C/D")
	// ErrSequenceOutOfRange indicates a 1-indexed position outside [1, total].
	ErrSequenceOutOfRange = errors.New("question number out of range")
)

// NotEnoughQuestionsError reports an availability shortfall before any rows
// are created.
type NotEnoughQuestionsError struct {
	Requested int
	Available int
}

func (e *NotEnoughQuestionsError) Error() string {
	return fmt.Sprintf("requested %d questions but only %d available", e.Requested, e.Available)
}
