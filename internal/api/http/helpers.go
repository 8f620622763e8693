package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mcq-platform/backend/internal/bank"
	"github.com/mcq-platform/backend/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]interface{}{"ok": false, "error": err.Error()})
}

// statusFor classifies domain errors: not-found, state-conflict, validation,
// everything else is a storage/internal failure.
func statusFor(err error) int {
	var short *quiz.NotEnoughQuestionsError
	switch {
	case errors.Is(err, quiz.ErrTestNotFound),
		errors.Is(err, quiz.ErrQuestionNotFound),
		errors.Is(err, quiz.ErrSubjectNotFound),
		errors.Is(err, quiz.ErrSequenceOutOfRange),
		errors.Is(err, bank.ErrSubjectNotFound),
		errors.Is(err, bank.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrTestNotActive),
		errors.Is(err, quiz.ErrTimeExpired):
		return http.StatusForbidden
	case errors.Is(err, quiz.ErrTestNotCompleted),
		errors.Is(err, bank.ErrSubjectExists):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrBadOption),
		errors.Is(err, quiz.ErrNotInteractive),
		errors.Is(err, quiz.ErrQuestionNotInTest),
		errors.As(err, &short):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func urlParamInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func urlParamInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}
