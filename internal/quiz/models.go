package quiz

import "fmt"

const (
	ModeDisplay     = "display"
	ModeInteractive = "interactive"

	TimerPerQuestion = "per-question"
	TimerTotalTest   = "total-test"

	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusDiscarded = "discarded"
)

// Test is the immutable configuration snapshot taken at creation time, plus
// the mutable status. Timestamps are unix seconds; ExpectedEndTime is 0 when
// the test has no total-test deadline.
type Test struct {
	ID                  int64  `json:"id"`
	UID                 string `json:"test_uid,omitempty"` // interactive only
	SubjectID           int64  `json:"subject_id"`
	DifficultyFilter    string `json:"difficulty_filter"`
	Mode                string `json:"mode"`
	TotalQuestions      int    `json:"total_questions"`
	TimerMode           string `json:"timer_mode"`
	PerQuestionDuration int    `json:"per_question_duration,omitempty"`
	TotalTestDuration   int    `json:"total_test_duration,omitempty"`
	AutoAdvance         bool   `json:"auto_advance"`
	Status              string `json:"status"`
	CreatedAt           int64  `json:"created_at"`
	ExpectedEndTime     int64  `json:"expected_end_time,omitempty"`
}

// StartRequest mirrors the start-test payload.
type StartRequest struct {
	SubjectID           int64  `json:"subject_id"`
	Mode                string `json:"mode"`
	Difficulty          string `json:"difficulty"`
	NumberOfQuestions   int    `json:"number_of_questions"`
	TimerMode           string `json:"timer_mode"`
	PerQuestionDuration int    `json:"per_question_duration"`
	TotalTestDuration   int    `json:"total_test_duration"`
	AutoAdvance         bool   `json:"auto_advance"`
}

// Validate checks enum values and timer-mode durations before anything is
// written. Bounds match the original intake form.
func (r StartRequest) Validate() error {
	if r.SubjectID <= 0 {
		return fmt.Errorf("subject_id required")
	}
	if r.Mode != ModeDisplay && r.Mode != ModeInteractive {
		return fmt.Errorf("mode must be %q or %q", ModeDisplay, ModeInteractive)
	}
	switch r.Difficulty {
	case "easy", "medium", "hard", "mixed", "all":
	default:
		return fmt.Errorf("difficulty must be one of easy/medium/hard/mixed/all")
	}
	if r.NumberOfQuestions < 1 || r.NumberOfQuestions > 500 {
		return fmt.Errorf("number_of_questions must be between 1 and 500")
	}
	switch r.TimerMode {
	case TimerPerQuestion:
		if r.PerQuestionDuration < 5 || r.PerQuestionDuration > 3600 {
			return fmt.Errorf("per_question_duration must be between 5 and 3600 seconds")
		}
	case TimerTotalTest:
		if r.TotalTestDuration < 30 || r.TotalTestDuration > 14400 {
			return fmt.Errorf("total_test_duration must be between 30 and 14400 seconds")
		}
	default:
		return fmt.Errorf("timer_mode must be %q or %q", TimerPerQuestion, TimerTotalTest)
	}
	return nil
}

// SubmitRequest is the submit-answer payload.
type SubmitRequest struct {
	QuestionID         int64  `json:"question_id"`
	SelectedOption     string `json:"selected_option"`
	CurrentQuestionSeq int    `json:"current_question_seq,omitempty"`
}

// SubmitResult is returned after an answer upsert.
type SubmitResult struct {
	OK          bool `json:"ok"`
	IsCorrect   bool `json:"is_correct"`
	QuestionSeq int  `json:"question_seq"`
}

// OptionView is one labelled answer choice.
type OptionView struct {
	Label string `json:"label"` // "A".."D"
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// QuestionView is the student-safe projection of a question: no correct
// option, no aggregate stats.
type QuestionView struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Image   string       `json:"image,omitempty"`
	Options []OptionView `json:"options"`
}

// TimerConfig is the client payload the runner page needs to drive timers.
type TimerConfig struct {
	Mode                string `json:"mode"`
	AutoAdvance         bool   `json:"auto_advance"`
	TimerMode           string `json:"timer_mode"`
	PerQuestionDuration int    `json:"per_question_duration"`
	TotalDuration       int    `json:"total_duration"`
	TestEndTime         int64  `json:"test_end_time,omitempty"` // unix seconds
	QuestionIndex       int    `json:"question_index"`
	TotalQuestions      int    `json:"total_questions"`
}

// RunnerPage serves the n-th question of an active test.
type RunnerPage struct {
	TestID         int64        `json:"test_id"`
	Sequence       int          `json:"sequence"`
	TotalQuestions int          `json:"total_questions"`
	HasPrev        bool         `json:"has_prev"`
	HasNext        bool         `json:"has_next"`
	Question       QuestionView `json:"question"`
	SelectedOption string       `json:"selected_option,omitempty"` // interactive pre-fill
	Timer          TimerConfig  `json:"timer"`
}

// ResponseView is the recorded answer shown during review.
type ResponseView struct {
	SelectedOption string `json:"selected_option"`
	IsCorrect      bool   `json:"is_correct"`
}

// ReviewPage serves the n-th question of a completed test, answers revealed.
type ReviewPage struct {
	TestID         int64         `json:"test_id"`
	Sequence       int           `json:"sequence"`
	TotalQuestions int           `json:"total_questions"`
	HasPrev        bool          `json:"has_prev"`
	HasNext        bool          `json:"has_next"`
	Question       QuestionView  `json:"question"`
	CorrectOption  string        `json:"correct_option"`
	Response       *ResponseView `json:"response,omitempty"`
}

// Summary is the finalized scorecard. correct+incorrect+unanswered == total.
type Summary struct {
	Total      int `json:"total"`
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
	Unanswered int `json:"unanswered"`
}
