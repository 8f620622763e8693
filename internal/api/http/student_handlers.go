package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mcq-platform/backend/internal/bank"
	"github.com/mcq-platform/backend/internal/quiz"
)

func ListSubjectsHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjects, err := store.ListSubjects(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, subjects)
	}
}

func StartTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quiz.StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": err.Error()})
			return
		}
		t, err := store.StartTest(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"test":               t,
			"first_question_url": fmt.Sprintf("/api/tests/%d/questions/1", t.ID),
		})
	}
}

func GetTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "testID")
		if err != nil {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		t, err := store.GetTest(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func QuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "testID")
		if err != nil {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		seq, err := urlParamInt(r, "seq")
		if err != nil {
			http.Error(w, "bad question number", http.StatusBadRequest)
			return
		}
		page, err := store.QuestionAt(r.Context(), id, seq)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func SubmitAnswerHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "testID")
		if err != nil {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		var req quiz.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "invalid JSON"})
			return
		}
		if req.QuestionID <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "question_id required"})
			return
		}
		res, err := store.SubmitAnswer(r.Context(), id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func FinishTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "testID")
		if err != nil {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		sum, err := store.Finalize(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func SummaryHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "testID")
		if err != nil {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		t, err := store.GetTest(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		// Students only see the scorecard once the test is closed.
		if t.Status != quiz.StatusCompleted {
			writeError(w, quiz.ErrTestNotCompleted)
			return
		}
		sum, err := store.Summary(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func ReviewHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "testID")
		if err != nil {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		seq, err := urlParamInt(r, "seq")
		if err != nil {
			http.Error(w, "bad question number", http.StatusBadRequest)
			return
		}
		page, err := store.ReviewAt(r.Context(), id, seq)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func DiscardTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "testID")
		if err != nil {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		if err := store.Discard(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// lookupSharedTest resolves a public review UID. Only completed interactive
// tests are reachable this way; display tests 404.
func lookupSharedTest(store quiz.Store, w http.ResponseWriter, r *http.Request) (quiz.Test, bool) {
	uid := chi.URLParam(r, "testUID")
	t, err := store.GetTestByUID(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return quiz.Test{}, false
	}
	if t.Mode != quiz.ModeInteractive {
		writeError(w, quiz.ErrTestNotFound)
		return quiz.Test{}, false
	}
	if t.Status != quiz.StatusCompleted {
		writeError(w, quiz.ErrTestNotCompleted)
		return quiz.Test{}, false
	}
	return t, true
}

func SharedReviewHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := lookupSharedTest(store, w, r)
		if !ok {
			return
		}
		seq := 1
		if s := chi.URLParam(r, "seq"); s != "" {
			n, err := urlParamInt(r, "seq")
			if err != nil {
				http.Error(w, "bad question number", http.StatusBadRequest)
				return
			}
			seq = n
		}
		page, err := store.ReviewAt(r.Context(), t.ID, seq)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func SharedSummaryHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := lookupSharedTest(store, w, r)
		if !ok {
			return
		}
		sum, err := store.Summary(r.Context(), t.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
