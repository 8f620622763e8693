package quiz

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) StartTest(ctx context.Context, req StartRequest) (Test, error) {
	if err := req.Validate(); err != nil {
		return Test{}, err
	}

	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE id=$1`, req.SubjectID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrSubjectNotFound
		}
		return Test{}, err
	}

	ids, err := s.candidateIDs(ctx, req.SubjectID, req.Difficulty)
	if err != nil {
		return Test{}, err
	}
	if len(ids) < req.NumberOfQuestions {
		return Test{}, &NotEnoughQuestionsError{Requested: req.NumberOfQuestions, Available: len(ids)}
	}

	// Uniform sample without replacement; the resulting order is the
	// presentation order and carries no other meaning.
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	picked := ids[:req.NumberOfQuestions]

	now := time.Now()
	t := Test{
		SubjectID:        req.SubjectID,
		DifficultyFilter: req.Difficulty,
		Mode:             req.Mode,
		TotalQuestions:   req.NumberOfQuestions,
		TimerMode:        req.TimerMode,
		AutoAdvance:      req.AutoAdvance,
		Status:           StatusActive,
		CreatedAt:        now.Unix(),
	}
	if req.Mode == ModeInteractive {
		t.UID = uuid.NewString()
	}
	if req.TimerMode == TimerPerQuestion {
		t.PerQuestionDuration = req.PerQuestionDuration
	} else {
		t.TotalTestDuration = req.TotalTestDuration
		t.ExpectedEndTime = now.Add(time.Duration(req.TotalTestDuration) * time.Second).Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Test{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `INSERT INTO tests
		(test_uid, subject_id, difficulty_filter, mode, total_questions, timer_mode,
		 per_question_duration, total_test_duration, auto_advance, status, created_at, expected_end_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		nullStr(t.UID), t.SubjectID, t.DifficultyFilter, t.Mode, t.TotalQuestions, t.TimerMode,
		nullInt(t.PerQuestionDuration), nullInt(t.TotalTestDuration), t.AutoAdvance, t.Status,
		t.CreatedAt, nullInt64(t.ExpectedEndTime)).Scan(&t.ID)
	if err != nil {
		return Test{}, err
	}

	for i, qid := range picked {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_questions (test_id, question_id, sequence) VALUES ($1,$2,$3)`,
			t.ID, qid, i+1); err != nil {
			return Test{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Test{}, err
	}
	return t, nil
}

func (s *SQLStore) candidateIDs(ctx context.Context, subjectID int64, difficulty string) ([]int64, error) {
	q := `SELECT id FROM questions WHERE subject_id=$1`
	args := []interface{}{subjectID}
	switch difficulty {
	case "easy", "medium", "hard":
		q += ` AND difficulty=$2`
		args = append(args, difficulty)
	}
	// "mixed" behaves like "all" until balanced sampling lands.
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) GetTest(ctx context.Context, id int64) (Test, error) {
	return s.getTest(ctx, `WHERE id=$1`, id)
}

func (s *SQLStore) GetTestByUID(ctx context.Context, uid string) (Test, error) {
	return s.getTest(ctx, `WHERE test_uid=$1`, uid)
}

func (s *SQLStore) getTest(ctx context.Context, where string, arg interface{}) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, test_uid, subject_id, difficulty_filter, mode,
		total_questions, timer_mode, per_question_duration, total_test_duration, auto_advance,
		status, created_at, expected_end_time FROM tests `+where, arg)
	var t Test
	var testUID sql.NullString
	var perQ, total sql.NullInt64
	var endAt sql.NullInt64
	err := row.Scan(&t.ID, &testUID, &t.SubjectID, &t.DifficultyFilter, &t.Mode,
		&t.TotalQuestions, &t.TimerMode, &perQ, &total, &t.AutoAdvance,
		&t.Status, &t.CreatedAt, &endAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrTestNotFound
		}
		return Test{}, err
	}
	t.UID = testUID.String
	t.PerQuestionDuration = int(perQ.Int64)
	t.TotalTestDuration = int(total.Int64)
	t.ExpectedEndTime = endAt.Int64
	return t, nil
}

func (s *SQLStore) QuestionAt(ctx context.Context, testID int64, n int) (RunnerPage, error) {
	t, err := s.GetTest(ctx, testID)
	if err != nil {
		return RunnerPage{}, err
	}
	if t.Status != StatusActive {
		return RunnerPage{}, ErrTestNotActive
	}
	if n < 1 || n > t.TotalQuestions {
		return RunnerPage{}, ErrSequenceOutOfRange
	}

	qv, err := s.questionAtSeq(ctx, testID, n)
	if err != nil {
		return RunnerPage{}, err
	}

	page := RunnerPage{
		TestID:         t.ID,
		Sequence:       n,
		TotalQuestions: t.TotalQuestions,
		HasPrev:        n > 1,
		HasNext:        n < t.TotalQuestions,
		Question:       qv,
		Timer: TimerConfig{
			Mode:                t.Mode,
			AutoAdvance:         t.AutoAdvance,
			TimerMode:           t.TimerMode,
			PerQuestionDuration: t.PerQuestionDuration,
			TotalDuration:       t.TotalTestDuration,
			TestEndTime:         t.ExpectedEndTime,
			QuestionIndex:       n,
			TotalQuestions:      t.TotalQuestions,
		},
	}

	// Pre-fill the stored selection so revisits show the prior answer.
	if t.Mode == ModeInteractive {
		var sel string
		err := s.db.QueryRowContext(ctx,
			`SELECT selected_option FROM test_responses WHERE test_id=$1 AND question_id=$2`,
			testID, qv.ID).Scan(&sel)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return RunnerPage{}, err
		}
		page.SelectedOption = sel
	}
	return page, nil
}

// questionAtSeq loads the student-safe view of the question at 1-indexed
// position n. The caller has already bounds-checked n.
func (s *SQLStore) questionAtSeq(ctx context.Context, testID int64, n int) (QuestionView, error) {
	row := s.db.QueryRowContext(ctx, `SELECT q.id, q.question_text, q.question_image,
		q.option_a, q.option_a_image, q.option_b, q.option_b_image,
		q.option_c, q.option_c_image, q.option_d, q.option_d_image
		FROM test_questions tq JOIN questions q ON q.id = tq.question_id
		WHERE tq.test_id=$1 AND tq.sequence=$2`, testID, n)
	return scanQuestionView(row)
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanQuestionView(row rowScanner) (QuestionView, error) {
	var qv QuestionView
	var qImg sql.NullString
	opts := make([]OptionView, 4)
	imgs := make([]sql.NullString, 4)
	err := row.Scan(&qv.ID, &qv.Text, &qImg,
		&opts[0].Text, &imgs[0], &opts[1].Text, &imgs[1],
		&opts[2].Text, &imgs[2], &opts[3].Text, &imgs[3])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuestionView{}, ErrSequenceOutOfRange
		}
		return QuestionView{}, err
	}
	qv.Image = qImg.String
	for i, label := range []string{"A", "B", "C", "D"} {
		opts[i].Label = label
		opts[i].Image = imgs[i].String
	}
	qv.Options = opts
	return qv, nil
}

func (s *SQLStore) SubmitAnswer(ctx context.Context, testID int64, req SubmitRequest) (SubmitResult, error) {
	sel := strings.ToUpper(strings.TrimSpace(req.SelectedOption))
	switch sel {
	case "A", "B", "C", "D":
	default:
		return SubmitResult{}, ErrBadOption
	}

	t, err := s.GetTest(ctx, testID)
	if err != nil {
		return SubmitResult{}, err
	}
	if t.Status != StatusActive {
		return SubmitResult{}, ErrTestNotActive
	}
	if t.Mode != ModeInteractive {
		return SubmitResult{}, ErrNotInteractive
	}
	// Only the total-test deadline is enforced server-side; the per-question
	// timer stays a presentation concern.
	if t.TimerMode == TimerTotalTest && t.ExpectedEndTime > 0 && time.Now().Unix() >= t.ExpectedEndTime {
		return SubmitResult{}, ErrTimeExpired
	}

	var seq int
	err = s.db.QueryRowContext(ctx,
		`SELECT sequence FROM test_questions WHERE test_id=$1 AND question_id=$2`,
		testID, req.QuestionID).Scan(&seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SubmitResult{}, ErrQuestionNotInTest
		}
		return SubmitResult{}, err
	}
	// A stale sequence hint is not fatal; the stored sequence wins.

	var correct string
	err = s.db.QueryRowContext(ctx,
		`SELECT correct_option FROM questions WHERE id=$1`, req.QuestionID).Scan(&correct)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SubmitResult{}, ErrQuestionNotFound
		}
		return SubmitResult{}, err
	}

	isCorrect := sel == correct
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `INSERT INTO test_responses
		(test_id, question_id, selected_option, correct_option, is_correct, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
		ON CONFLICT (test_id, question_id) DO UPDATE SET
		  selected_option=EXCLUDED.selected_option,
		  correct_option=EXCLUDED.correct_option,
		  is_correct=EXCLUDED.is_correct,
		  updated_at=EXCLUDED.updated_at`,
		testID, req.QuestionID, sel, correct, isCorrect, now)
	if err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{OK: true, IsCorrect: isCorrect, QuestionSeq: seq}, nil
}

func (s *SQLStore) Finalize(ctx context.Context, testID int64) (Summary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, err
	}
	defer tx.Rollback()

	var status string
	var total int
	err = tx.QueryRowContext(ctx,
		`SELECT status, total_questions FROM tests WHERE id=$1`, testID).Scan(&status, &total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, ErrTestNotFound
		}
		return Summary{}, err
	}
	if status == StatusDiscarded {
		return Summary{}, ErrTestNotActive
	}

	// The conditional flip is the idempotency guard: only the call that wins
	// the active->completed transition gets to touch question stats.
	res, err := tx.ExecContext(ctx,
		`UPDATE tests SET status=$1 WHERE id=$2 AND status=$3`,
		StatusCompleted, testID, StatusActive)
	if err != nil {
		return Summary{}, err
	}
	flipped, err := res.RowsAffected()
	if err != nil {
		return Summary{}, err
	}
	if flipped == 0 {
		// Already completed: recompute the summary, no stat mutation.
		return summaryCounts(ctx, tx, testID, total)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE questions
		SET total_attempts = total_attempts + 1
		WHERE id IN (SELECT question_id FROM test_responses WHERE test_id=$1)`, testID); err != nil {
		return Summary{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE questions
		SET correct_count = correct_count + 1
		WHERE id IN (SELECT question_id FROM test_responses WHERE test_id=$1 AND is_correct)`, testID); err != nil {
		return Summary{}, err
	}

	sum, err := summaryCounts(ctx, tx, testID, total)
	if err != nil {
		return Summary{}, err
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *SQLStore) Summary(ctx context.Context, testID int64) (Summary, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT total_questions FROM tests WHERE id=$1`, testID).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, ErrTestNotFound
		}
		return Summary{}, err
	}
	return summaryCounts(ctx, s.db, testID, total)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func summaryCounts(ctx context.Context, q querier, testID int64, total int) (Summary, error) {
	var answered, correct int
	if err := q.QueryRowContext(ctx,
		`SELECT count(*) FROM test_responses WHERE test_id=$1`, testID).Scan(&answered); err != nil {
		return Summary{}, err
	}
	if err := q.QueryRowContext(ctx,
		`SELECT count(*) FROM test_responses WHERE test_id=$1 AND is_correct`, testID).Scan(&correct); err != nil {
		return Summary{}, err
	}
	return Summary{
		Total:      total,
		Correct:    correct,
		Incorrect:  answered - correct,
		Unanswered: total - answered,
	}, nil
}

func (s *SQLStore) ReviewAt(ctx context.Context, testID int64, n int) (ReviewPage, error) {
	t, err := s.GetTest(ctx, testID)
	if err != nil {
		return ReviewPage{}, err
	}
	if t.Status != StatusCompleted {
		return ReviewPage{}, ErrTestNotCompleted
	}
	if n < 1 || n > t.TotalQuestions {
		return ReviewPage{}, ErrSequenceOutOfRange
	}

	row := s.db.QueryRowContext(ctx, `SELECT q.id, q.question_text, q.question_image,
		q.option_a, q.option_a_image, q.option_b, q.option_b_image,
		q.option_c, q.option_c_image, q.option_d, q.option_d_image, q.correct_option
		FROM test_questions tq JOIN questions q ON q.id = tq.question_id
		WHERE tq.test_id=$1 AND tq.sequence=$2`, testID, n)
	var qv QuestionView
	var qImg sql.NullString
	var correct string
	opts := make([]OptionView, 4)
	imgs := make([]sql.NullString, 4)
	err = row.Scan(&qv.ID, &qv.Text, &qImg,
		&opts[0].Text, &imgs[0], &opts[1].Text, &imgs[1],
		&opts[2].Text, &imgs[2], &opts[3].Text, &imgs[3], &correct)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ReviewPage{}, ErrSequenceOutOfRange
		}
		return ReviewPage{}, err
	}
	qv.Image = qImg.String
	for i, label := range []string{"A", "B", "C", "D"} {
		opts[i].Label = label
		opts[i].Image = imgs[i].String
	}
	qv.Options = opts

	page := ReviewPage{
		TestID:         t.ID,
		Sequence:       n,
		TotalQuestions: t.TotalQuestions,
		HasPrev:        n > 1,
		HasNext:        n < t.TotalQuestions,
		Question:       qv,
		CorrectOption:  correct,
	}

	var sel string
	var isCorrect bool
	err = s.db.QueryRowContext(ctx,
		`SELECT selected_option, is_correct FROM test_responses WHERE test_id=$1 AND question_id=$2`,
		testID, qv.ID).Scan(&sel, &isCorrect)
	switch {
	case err == nil:
		page.Response = &ResponseView{SelectedOption: sel, IsCorrect: isCorrect}
	case errors.Is(err, sql.ErrNoRows):
		// unanswered
	default:
		return ReviewPage{}, err
	}
	return page, nil
}

func (s *SQLStore) Discard(ctx context.Context, testID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tests SET status=$1 WHERE id=$2 AND status=$3`,
		StatusDiscarded, testID, StatusActive)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetTest(ctx, testID); err != nil {
			return err
		}
		return ErrTestNotActive
	}
	return nil
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}
