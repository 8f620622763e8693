package quiz_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mcq-platform/backend/internal/bank"
	"github.com/mcq-platform/backend/internal/db"
	"github.com/mcq-platform/backend/internal/quiz"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return dbh
}

// seedBank creates a subject with n questions whose correct option is "A".
func seedBank(t *testing.T, dbh *sql.DB, n int) (int64, []int64) {
	t.Helper()
	ctx := context.Background()
	bs := bank.NewSQLStore(dbh, "sqlite")
	sub, err := bs.CreateSubject(ctx, "Physics")
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		q := bank.Question{
			SubjectID:     sub.ID,
			Text:          fmt.Sprintf("question %d", i+1),
			OptionA:       "right",
			OptionB:       "wrong",
			OptionC:       "wrong",
			OptionD:       "wrong",
			CorrectOption: "A",
		}
		if err := bs.CreateQuestion(ctx, &q); err != nil {
			t.Fatalf("create question %d: %v", i, err)
		}
		ids = append(ids, q.ID)
	}
	return sub.ID, ids
}

func startInteractive(t *testing.T, s *quiz.SQLStore, subjectID int64, n int) quiz.Test {
	t.Helper()
	tst, err := s.StartTest(context.Background(), quiz.StartRequest{
		SubjectID:           subjectID,
		Mode:                quiz.ModeInteractive,
		Difficulty:          "all",
		NumberOfQuestions:   n,
		TimerMode:           quiz.TimerPerQuestion,
		PerQuestionDuration: 30,
	})
	if err != nil {
		t.Fatalf("start test: %v", err)
	}
	return tst
}

// orderedQuestionIDs returns the test's question ids in sequence order.
func orderedQuestionIDs(t *testing.T, dbh *sql.DB, testID int64) []int64 {
	t.Helper()
	rows, err := dbh.Query(
		`SELECT question_id FROM test_questions WHERE test_id=$1 ORDER BY sequence`, testID)
	if err != nil {
		t.Fatalf("query test_questions: %v", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestStartTestAssemblesSequence(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 10)
	s := quiz.NewSQLStore(dbh, "sqlite")

	tst := startInteractive(t, s, subjectID, 5)
	if tst.ID == 0 {
		t.Fatal("expected a test id")
	}
	if tst.UID == "" {
		t.Fatal("interactive test should get a share UID")
	}
	if tst.Status != quiz.StatusActive {
		t.Fatalf("status = %q, want active", tst.Status)
	}

	ids := orderedQuestionIDs(t, dbh, tst.ID)
	if len(ids) != 5 {
		t.Fatalf("got %d questions, want 5", len(ids))
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("question %d attached twice", id)
		}
		seen[id] = true
	}

	var maxSeq, count int
	if err := dbh.QueryRow(
		`SELECT max(sequence), count(*) FROM test_questions WHERE test_id=$1`, tst.ID).
		Scan(&maxSeq, &count); err != nil {
		t.Fatalf("sequence check: %v", err)
	}
	if maxSeq != count {
		t.Fatalf("sequences not contiguous: max=%d count=%d", maxSeq, count)
	}
}

func TestStartTestDisplayModeHasNoUID(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 3)
	s := quiz.NewSQLStore(dbh, "sqlite")

	tst, err := s.StartTest(context.Background(), quiz.StartRequest{
		SubjectID:           subjectID,
		Mode:                quiz.ModeDisplay,
		Difficulty:          "mixed",
		NumberOfQuestions:   3,
		TimerMode:           quiz.TimerPerQuestion,
		PerQuestionDuration: 15,
	})
	if err != nil {
		t.Fatalf("start test: %v", err)
	}
	if tst.UID != "" {
		t.Fatalf("display test got UID %q", tst.UID)
	}
}

func TestStartTestNotEnoughQuestions(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 3)
	s := quiz.NewSQLStore(dbh, "sqlite")

	_, err := s.StartTest(context.Background(), quiz.StartRequest{
		SubjectID:           subjectID,
		Mode:                quiz.ModeInteractive,
		Difficulty:          "all",
		NumberOfQuestions:   10,
		TimerMode:           quiz.TimerPerQuestion,
		PerQuestionDuration: 30,
	})
	var short *quiz.NotEnoughQuestionsError
	if !errors.As(err, &short) {
		t.Fatalf("err = %v, want NotEnoughQuestionsError", err)
	}
	if short.Requested != 10 || short.Available != 3 {
		t.Fatalf("shortfall = %+v", short)
	}

	var n int
	if err := dbh.QueryRow(`SELECT count(*) FROM tests`).Scan(&n); err != nil {
		t.Fatalf("count tests: %v", err)
	}
	if n != 0 {
		t.Fatalf("%d test rows created on failed start", n)
	}
}

func TestStartTestUnknownSubject(t *testing.T) {
	dbh := openTestDB(t)
	s := quiz.NewSQLStore(dbh, "sqlite")

	_, err := s.StartTest(context.Background(), quiz.StartRequest{
		SubjectID:           999,
		Mode:                quiz.ModeInteractive,
		Difficulty:          "all",
		NumberOfQuestions:   1,
		TimerMode:           quiz.TimerPerQuestion,
		PerQuestionDuration: 30,
	})
	if !errors.Is(err, quiz.ErrSubjectNotFound) {
		t.Fatalf("err = %v, want ErrSubjectNotFound", err)
	}
}

func TestDifficultyFilterNarrowsPool(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, ids := seedBank(t, dbh, 4)
	if _, err := dbh.Exec(`UPDATE questions SET difficulty='easy' WHERE id=$1`, ids[0]); err != nil {
		t.Fatalf("mark easy: %v", err)
	}
	s := quiz.NewSQLStore(dbh, "sqlite")

	_, err := s.StartTest(context.Background(), quiz.StartRequest{
		SubjectID:           subjectID,
		Mode:                quiz.ModeInteractive,
		Difficulty:          "easy",
		NumberOfQuestions:   2,
		TimerMode:           quiz.TimerPerQuestion,
		PerQuestionDuration: 30,
	})
	var short *quiz.NotEnoughQuestionsError
	if !errors.As(err, &short) {
		t.Fatalf("err = %v, want NotEnoughQuestionsError", err)
	}
	if short.Available != 1 {
		t.Fatalf("available = %d, want 1", short.Available)
	}
}

func TestSubmitAnswerUpsert(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 3)
	s := quiz.NewSQLStore(dbh, "sqlite")
	ctx := context.Background()

	tst := startInteractive(t, s, subjectID, 3)
	qid := orderedQuestionIDs(t, dbh, tst.ID)[0]

	res, err := s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: qid, SelectedOption: "a"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.IsCorrect || res.QuestionSeq != 1 {
		t.Fatalf("result = %+v", res)
	}

	// Changing the answer replaces the row.
	res, err = s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: qid, SelectedOption: "B"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if res.IsCorrect {
		t.Fatal("B should be wrong")
	}

	var n int
	var sel string
	if err := dbh.QueryRow(
		`SELECT count(*) FROM test_responses WHERE test_id=$1`, tst.ID).Scan(&n); err != nil {
		t.Fatalf("count responses: %v", err)
	}
	if n != 1 {
		t.Fatalf("%d response rows, want 1", n)
	}
	if err := dbh.QueryRow(
		`SELECT selected_option FROM test_responses WHERE test_id=$1 AND question_id=$2`,
		tst.ID, qid).Scan(&sel); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if sel != "B" {
		t.Fatalf("selected = %q, want B (last write wins)", sel)
	}
}

func TestSubmitAnswerRejections(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, ids := seedBank(t, dbh, 4)
	s := quiz.NewSQLStore(dbh, "sqlite")
	ctx := context.Background()

	tst := startInteractive(t, s, subjectID, 3)
	inTest := orderedQuestionIDs(t, dbh, tst.ID)

	// The seeded bank has 4 questions and the test holds 3; find the one left out.
	var outside int64
	member := map[int64]bool{}
	for _, id := range inTest {
		member[id] = true
	}
	for _, id := range ids {
		if !member[id] {
			outside = id
		}
	}

	if _, err := s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: inTest[0], SelectedOption: "E"}); !errors.Is(err, quiz.ErrBadOption) {
		t.Fatalf("bad option: err = %v", err)
	}
	if _, err := s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: outside, SelectedOption: "A"}); !errors.Is(err, quiz.ErrQuestionNotInTest) {
		t.Fatalf("outside question: err = %v", err)
	}

	// Display tests never accept answers.
	disp, err := s.StartTest(ctx, quiz.StartRequest{
		SubjectID:           subjectID,
		Mode:                quiz.ModeDisplay,
		Difficulty:          "all",
		NumberOfQuestions:   2,
		TimerMode:           quiz.TimerPerQuestion,
		PerQuestionDuration: 30,
	})
	if err != nil {
		t.Fatalf("start display test: %v", err)
	}
	dq := orderedQuestionIDs(t, dbh, disp.ID)[0]
	if _, err := s.SubmitAnswer(ctx, disp.ID, quiz.SubmitRequest{QuestionID: dq, SelectedOption: "A"}); !errors.Is(err, quiz.ErrNotInteractive) {
		t.Fatalf("display submit: err = %v", err)
	}
}

func TestSubmitAfterDeadline(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 3)
	s := quiz.NewSQLStore(dbh, "sqlite")
	ctx := context.Background()

	tst, err := s.StartTest(ctx, quiz.StartRequest{
		SubjectID:         subjectID,
		Mode:              quiz.ModeInteractive,
		Difficulty:        "all",
		NumberOfQuestions: 3,
		TimerMode:         quiz.TimerTotalTest,
		TotalTestDuration: 600,
	})
	if err != nil {
		t.Fatalf("start test: %v", err)
	}
	qid := orderedQuestionIDs(t, dbh, tst.ID)[0]

	if _, err := s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: qid, SelectedOption: "A"}); err != nil {
		t.Fatalf("submit before deadline: %v", err)
	}

	past := time.Now().Add(-time.Minute).Unix()
	if _, err := dbh.Exec(`UPDATE tests SET expected_end_time=$1 WHERE id=$2`, past, tst.ID); err != nil {
		t.Fatalf("expire test: %v", err)
	}
	if _, err := s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: qid, SelectedOption: "B"}); !errors.Is(err, quiz.ErrTimeExpired) {
		t.Fatalf("submit after deadline: err = %v", err)
	}
}

func TestQuestionAtRunnerPage(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 5)
	s := quiz.NewSQLStore(dbh, "sqlite")
	ctx := context.Background()

	tst := startInteractive(t, s, subjectID, 5)
	qid := orderedQuestionIDs(t, dbh, tst.ID)[1]

	page, err := s.QuestionAt(ctx, tst.ID, 2)
	if err != nil {
		t.Fatalf("question at 2: %v", err)
	}
	if page.Question.ID != qid {
		t.Fatalf("question id = %d, want %d", page.Question.ID, qid)
	}
	if !page.HasPrev || !page.HasNext {
		t.Fatalf("nav flags = prev:%v next:%v", page.HasPrev, page.HasNext)
	}
	if len(page.Question.Options) != 4 {
		t.Fatalf("%d options", len(page.Question.Options))
	}
	if page.Timer.PerQuestionDuration != 30 {
		t.Fatalf("per-question duration = %d", page.Timer.PerQuestionDuration)
	}

	// Out-of-range sequences are rejected at both ends.
	if _, err := s.QuestionAt(ctx, tst.ID, 0); !errors.Is(err, quiz.ErrSequenceOutOfRange) {
		t.Fatalf("seq 0: err = %v", err)
	}
	if _, err := s.QuestionAt(ctx, tst.ID, 6); !errors.Is(err, quiz.ErrSequenceOutOfRange) {
		t.Fatalf("seq 6: err = %v", err)
	}

	// A stored answer is pre-filled on revisit.
	if _, err := s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: qid, SelectedOption: "C"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	page, err = s.QuestionAt(ctx, tst.ID, 2)
	if err != nil {
		t.Fatalf("revisit: %v", err)
	}
	if page.SelectedOption != "C" {
		t.Fatalf("prefill = %q, want C", page.SelectedOption)
	}
}

func TestFinalizeScoresAndIsIdempotent(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 5)
	s := quiz.NewSQLStore(dbh, "sqlite")
	ctx := context.Background()

	tst := startInteractive(t, s, subjectID, 5)
	ids := orderedQuestionIDs(t, dbh, tst.ID)

	// Answer three of five: two correct, one wrong.
	for i, sel := range []string{"A", "A", "B"} {
		if _, err := s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: ids[i], SelectedOption: sel}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	sum, err := s.Finalize(ctx, tst.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	want := quiz.Summary{Total: 5, Correct: 2, Incorrect: 1, Unanswered: 2}
	if sum != want {
		t.Fatalf("summary = %+v, want %+v", sum, want)
	}
	if sum.Correct+sum.Incorrect+sum.Unanswered != sum.Total {
		t.Fatalf("summary does not add up: %+v", sum)
	}

	// Second finalize returns the same summary without double counting stats.
	again, err := s.Finalize(ctx, tst.ID)
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if again != want {
		t.Fatalf("second summary = %+v", again)
	}

	var attempts, correct int
	if err := dbh.QueryRow(
		`SELECT coalesce(sum(total_attempts),0), coalesce(sum(correct_count),0) FROM questions`).
		Scan(&attempts, &correct); err != nil {
		t.Fatalf("read stats: %v", err)
	}
	if attempts != 3 || correct != 2 {
		t.Fatalf("stats = attempts:%d correct:%d, want 3/2", attempts, correct)
	}

	// Mutations are rejected once completed.
	if _, err := s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: ids[0], SelectedOption: "A"}); !errors.Is(err, quiz.ErrTestNotActive) {
		t.Fatalf("submit after finalize: err = %v", err)
	}
}

func TestReviewAt(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 3)
	s := quiz.NewSQLStore(dbh, "sqlite")
	ctx := context.Background()

	tst := startInteractive(t, s, subjectID, 3)
	ids := orderedQuestionIDs(t, dbh, tst.ID)

	// Review is gated on completion.
	if _, err := s.ReviewAt(ctx, tst.ID, 1); !errors.Is(err, quiz.ErrTestNotCompleted) {
		t.Fatalf("review active test: err = %v", err)
	}

	if _, err := s.SubmitAnswer(ctx, tst.ID, quiz.SubmitRequest{QuestionID: ids[0], SelectedOption: "B"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := s.Finalize(ctx, tst.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	page, err := s.ReviewAt(ctx, tst.ID, 1)
	if err != nil {
		t.Fatalf("review 1: %v", err)
	}
	if page.CorrectOption != "A" {
		t.Fatalf("correct option = %q", page.CorrectOption)
	}
	if page.Response == nil || page.Response.SelectedOption != "B" || page.Response.IsCorrect {
		t.Fatalf("response = %+v", page.Response)
	}

	page, err = s.ReviewAt(ctx, tst.ID, 2)
	if err != nil {
		t.Fatalf("review 2: %v", err)
	}
	if page.Response != nil {
		t.Fatalf("unanswered question has response %+v", page.Response)
	}
}

func TestDiscard(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 3)
	s := quiz.NewSQLStore(dbh, "sqlite")
	ctx := context.Background()

	tst := startInteractive(t, s, subjectID, 3)
	if err := s.Discard(ctx, tst.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}

	got, err := s.GetTest(ctx, tst.ID)
	if err != nil {
		t.Fatalf("get test: %v", err)
	}
	if got.Status != quiz.StatusDiscarded {
		t.Fatalf("status = %q", got.Status)
	}

	if err := s.Discard(ctx, tst.ID); !errors.Is(err, quiz.ErrTestNotActive) {
		t.Fatalf("second discard: err = %v", err)
	}
	if _, err := s.Finalize(ctx, tst.ID); !errors.Is(err, quiz.ErrTestNotActive) {
		t.Fatalf("finalize discarded: err = %v", err)
	}
	if err := s.Discard(ctx, 9999); !errors.Is(err, quiz.ErrTestNotFound) {
		t.Fatalf("discard missing: err = %v", err)
	}
}

func TestGetTestByUID(t *testing.T) {
	dbh := openTestDB(t)
	subjectID, _ := seedBank(t, dbh, 3)
	s := quiz.NewSQLStore(dbh, "sqlite")
	ctx := context.Background()

	tst := startInteractive(t, s, subjectID, 3)
	got, err := s.GetTestByUID(ctx, tst.UID)
	if err != nil {
		t.Fatalf("get by uid: %v", err)
	}
	if got.ID != tst.ID {
		t.Fatalf("id = %d, want %d", got.ID, tst.ID)
	}
	if _, err := s.GetTestByUID(ctx, "nope"); !errors.Is(err, quiz.ErrTestNotFound) {
		t.Fatalf("unknown uid: err = %v", err)
	}
}
