package quiz

import "context"

// Store is the test lifecycle surface: assembly, runner, response recording,
// finalization, summary.
type Store interface {
	// StartTest checks availability, then atomically creates the test row
	// and its 1..N question sequence. Either all rows exist or none do.
	StartTest(ctx context.Context, req StartRequest) (Test, error)

	GetTest(ctx context.Context, id int64) (Test, error)
	GetTestByUID(ctx context.Context, uid string) (Test, error)

	// QuestionAt serves the 1-indexed n-th question of an active test.
	QuestionAt(ctx context.Context, testID int64, n int) (RunnerPage, error)

	// SubmitAnswer upserts the response for (test, question). Last write wins
	// while the test is active.
	SubmitAnswer(ctx context.Context, testID int64, req SubmitRequest) (SubmitResult, error)

	// Finalize closes the test, folds responses into per-question stats, and
	// returns the summary. Idempotent: a completed test is left untouched.
	Finalize(ctx context.Context, testID int64) (Summary, error)

	// Summary recomputes the scorecard from persisted responses.
	Summary(ctx context.Context, testID int64) (Summary, error)

	// ReviewAt serves the n-th question of a completed test with the correct
	// option and any recorded response.
	ReviewAt(ctx context.Context, testID int64, n int) (ReviewPage, error)

	// Discard abandons an active test.
	Discard(ctx context.Context, testID int64) error
}
