package bank

import "context"

// Store is the question-bank surface used by the admin API and the bulk
// importer.
type Store interface {
	ListSubjects(ctx context.Context) ([]Subject, error)
	CreateSubject(ctx context.Context, name string) (Subject, error)
	UpdateSubject(ctx context.Context, id int64, name string) (Subject, error)
	DeleteSubject(ctx context.Context, id int64) error
	// SubjectIDByName resolves a subject case-insensitively (bulk import keys
	// rows by subject name).
	SubjectIDByName(ctx context.Context, name string) (int64, error)

	ListQuestions(ctx context.Context, subjectID int64, limit int) ([]Question, error)
	GetQuestion(ctx context.Context, id int64) (Question, error)
	CreateQuestion(ctx context.Context, q *Question) error
	UpdateQuestion(ctx context.Context, q *Question) error
	DeleteQuestion(ctx context.Context, id int64) error

	// RecomputeDifficulty derives difficulty labels from aggregate accuracy
	// for questions with at least minAttempts attempts. Returns rows updated.
	RecomputeDifficulty(ctx context.Context, minAttempts int64) (int64, error)
}
