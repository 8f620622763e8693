package bank

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSubjectNotFound is returned for unknown subject ids.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrSubjectExists rejects case-insensitive duplicate subject names.
	ErrSubjectExists = errors.New("a subject with this name already exists")
	// ErrQuestionNotFound is returned for unknown question ids.
	ErrQuestionNotFound = errors.New("question not found")
)

const MaxQuestionTextLen = 2000

type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Question is the admin-facing record, stats and correct option included.
type Question struct {
	ID            int64  `json:"id"`
	SubjectID     int64  `json:"subject_id"`
	Text          string `json:"question_text"`
	Image         string `json:"question_image,omitempty"`
	OptionA       string `json:"option_a"`
	OptionAImage  string `json:"option_a_image,omitempty"`
	OptionB       string `json:"option_b"`
	OptionBImage  string `json:"option_b_image,omitempty"`
	OptionC       string `json:"option_c"`
	OptionCImage  string `json:"option_c_image,omitempty"`
	OptionD       string `json:"option_d"`
	OptionDImage  string `json:"option_d_image,omitempty"`
	CorrectOption string `json:"correct_option"`

	CorrectCount  int64  `json:"correct_count"`
	TotalAttempts int64  `json:"total_attempts"`
	Difficulty    string `json:"difficulty"`

	CreatedAt int64 `json:"created_at,omitempty"`
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// Validate normalizes and checks the writable fields.
func (q *Question) Validate() error {
	q.Text = strings.TrimSpace(q.Text)
	q.OptionA = strings.TrimSpace(q.OptionA)
	q.OptionB = strings.TrimSpace(q.OptionB)
	q.OptionC = strings.TrimSpace(q.OptionC)
	q.OptionD = strings.TrimSpace(q.OptionD)
	q.CorrectOption = strings.ToUpper(strings.TrimSpace(q.CorrectOption))

	if q.SubjectID <= 0 {
		return fmt.Errorf("subject_id required")
	}
	if q.Text == "" {
		return fmt.Errorf("question_text required")
	}
	if len([]rune(q.Text)) > MaxQuestionTextLen {
		return fmt.Errorf("question_text exceeds %d characters", MaxQuestionTextLen)
	}
	if q.OptionA == "" || q.OptionB == "" || q.OptionC == "" || q.OptionD == "" {
		return fmt.Errorf("all four options are required")
	}
	switch q.CorrectOption {
	case "A", "B", "C", "D":
	default:
		return fmt.Errorf("correct_option must be one of A, B, C, D")
	}
	return nil
}

// ValidateSubjectName checks a subject name before create/update.
func ValidateSubjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("subject name is required")
	}
	if len([]rune(name)) > 100 {
		return "", fmt.Errorf("subject name must be 100 characters or fewer")
	}
	return name, nil
}
