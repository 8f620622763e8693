package bank

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM subjects ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Subject{}
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateSubject(ctx context.Context, name string) (Subject, error) {
	name, err := ValidateSubjectName(name)
	if err != nil {
		return Subject{}, err
	}
	if taken, err := s.nameTaken(ctx, name, 0); err != nil {
		return Subject{}, err
	} else if taken {
		return Subject{}, ErrSubjectExists
	}
	var sub Subject
	sub.Name = name
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO subjects (name) VALUES ($1) RETURNING id`, name).Scan(&sub.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Subject{}, ErrSubjectExists
		}
		return Subject{}, err
	}
	return sub, nil
}

func (s *SQLStore) UpdateSubject(ctx context.Context, id int64, name string) (Subject, error) {
	name, err := ValidateSubjectName(name)
	if err != nil {
		return Subject{}, err
	}
	if taken, err := s.nameTaken(ctx, name, id); err != nil {
		return Subject{}, err
	} else if taken {
		return Subject{}, ErrSubjectExists
	}
	res, err := s.db.ExecContext(ctx, `UPDATE subjects SET name=$1 WHERE id=$2`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return Subject{}, ErrSubjectExists
		}
		return Subject{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Subject{}, err
	}
	if n == 0 {
		return Subject{}, ErrSubjectNotFound
	}
	return Subject{ID: id, Name: name}, nil
}

func (s *SQLStore) DeleteSubject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

func (s *SQLStore) SubjectIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM subjects WHERE lower(name)=lower($1)`, strings.TrimSpace(name)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSubjectNotFound
		}
		return 0, err
	}
	return id, nil
}

func (s *SQLStore) nameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM subjects WHERE lower(name)=lower($1)`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return id != excludeID, nil
}

const questionCols = `id, subject_id, question_text, question_image,
	option_a, option_a_image, option_b, option_b_image,
	option_c, option_c_image, option_d, option_d_image,
	correct_option, correct_count, total_attempts, difficulty, created_at, updated_at`

func (s *SQLStore) ListQuestions(ctx context.Context, subjectID int64, limit int) ([]Question, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	q := `SELECT ` + questionCols + ` FROM questions`
	args := []interface{}{}
	if subjectID > 0 {
		q += ` WHERE subject_id=$1`
		args = append(args, subjectID)
	}
	q += ` ORDER BY id DESC LIMIT ` + strconv.Itoa(limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		qn, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qn)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrQuestionNotFound
		}
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) CreateQuestion(ctx context.Context, q *Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if _, err := s.subjectExists(ctx, q.SubjectID); err != nil {
		return err
	}
	now := time.Now().Unix()
	q.CreatedAt, q.UpdatedAt = now, now
	if q.Difficulty == "" {
		q.Difficulty = "unrated"
	}
	return s.db.QueryRowContext(ctx, `INSERT INTO questions
		(subject_id, question_text, question_image,
		 option_a, option_a_image, option_b, option_b_image,
		 option_c, option_c_image, option_d, option_d_image,
		 correct_option, difficulty, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id`,
		q.SubjectID, q.Text, nullStr(q.Image),
		q.OptionA, nullStr(q.OptionAImage), q.OptionB, nullStr(q.OptionBImage),
		q.OptionC, nullStr(q.OptionCImage), q.OptionD, nullStr(q.OptionDImage),
		q.CorrectOption, q.Difficulty, q.CreatedAt, q.UpdatedAt).Scan(&q.ID)
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q *Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if _, err := s.subjectExists(ctx, q.SubjectID); err != nil {
		return err
	}
	q.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET
		subject_id=$1, question_text=$2, question_image=$3,
		option_a=$4, option_a_image=$5, option_b=$6, option_b_image=$7,
		option_c=$8, option_c_image=$9, option_d=$10, option_d_image=$11,
		correct_option=$12, updated_at=$13
		WHERE id=$14`,
		q.SubjectID, q.Text, nullStr(q.Image),
		q.OptionA, nullStr(q.OptionAImage), q.OptionB, nullStr(q.OptionBImage),
		q.OptionC, nullStr(q.OptionCImage), q.OptionD, nullStr(q.OptionDImage),
		q.CorrectOption, q.UpdatedAt, q.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// RecomputeDifficulty bands questions by accuracy: >=70% easy, >=40% medium,
// else hard. Integer math keeps the expression portable across drivers.
func (s *SQLStore) RecomputeDifficulty(ctx context.Context, minAttempts int64) (int64, error) {
	if minAttempts < 1 {
		minAttempts = 5
	}
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET
		difficulty = CASE
			WHEN correct_count * 100 >= total_attempts * 70 THEN 'easy'
			WHEN correct_count * 100 >= total_attempts * 40 THEN 'medium'
			ELSE 'hard'
		END,
		last_difficulty_update = $1
		WHERE total_attempts >= $2`, time.Now().Unix(), minAttempts)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLStore) subjectExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrSubjectNotFound
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var img, aImg, bImg, cImg, dImg sql.NullString
	err := row.Scan(&q.ID, &q.SubjectID, &q.Text, &img,
		&q.OptionA, &aImg, &q.OptionB, &bImg,
		&q.OptionC, &cImg, &q.OptionD, &dImg,
		&q.CorrectOption, &q.CorrectCount, &q.TotalAttempts, &q.Difficulty,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return Question{}, err
	}
	q.Image = img.String
	q.OptionAImage = aImg.String
	q.OptionBImage = bImg.String
	q.OptionCImage = cImg.String
	q.OptionDImage = dImg.String
	return q, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
