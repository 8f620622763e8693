package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/mcq-platform/backend/internal/bank"
	"github.com/mcq-platform/backend/internal/storage"
)

const maxQuestionFormBytes = 8 << 20 // whole multipart form, images included

func ListQuestionsHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var subjectID int64
		if s := r.URL.Query().Get("subject_id"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				http.Error(w, "bad subject_id", http.StatusBadRequest)
				return
			}
			subjectID = v
		}
		limit := 200
		if s := r.URL.Query().Get("limit"); s != "" {
			if v, err := strconv.Atoi(s); err == nil && v > 0 {
				limit = v
			}
		}
		qs, err := store.ListQuestions(r.Context(), subjectID, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

func GetQuestionHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "questionID")
		if err != nil {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		q, err := store.GetQuestion(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func CreateQuestionHandler(store bank.Store, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxQuestionFormBytes); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		q, ok := questionFromForm(w, r)
		if !ok {
			return
		}
		if err := q.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": err.Error()})
			return
		}
		if !attachImages(w, r, bs, &q) {
			return
		}
		if err := store.CreateQuestion(r.Context(), &q); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func UpdateQuestionHandler(store bank.Store, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "questionID")
		if err != nil {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		existing, err := store.GetQuestion(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := r.ParseMultipartForm(maxQuestionFormBytes); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		q, ok := questionFromForm(w, r)
		if !ok {
			return
		}
		q.ID = id
		// Existing images survive unless a replacement is uploaded.
		q.Image = existing.Image
		q.OptionAImage = existing.OptionAImage
		q.OptionBImage = existing.OptionBImage
		q.OptionCImage = existing.OptionCImage
		q.OptionDImage = existing.OptionDImage
		if err := q.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": err.Error()})
			return
		}
		if !attachImages(w, r, bs, &q) {
			return
		}
		if err := store.UpdateQuestion(r.Context(), &q); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuestionHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamInt64(r, "questionID")
		if err != nil {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		if err := store.DeleteQuestion(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func questionFromForm(w http.ResponseWriter, r *http.Request) (bank.Question, bool) {
	subjectID, err := strconv.ParseInt(r.FormValue("subject_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "subject_id required"})
		return bank.Question{}, false
	}
	return bank.Question{
		SubjectID:     subjectID,
		Text:          r.FormValue("question_text"),
		OptionA:       r.FormValue("option_a"),
		OptionB:       r.FormValue("option_b"),
		OptionC:       r.FormValue("option_c"),
		OptionD:       r.FormValue("option_d"),
		CorrectOption: r.FormValue("correct_option"),
	}, true
}

// attachImages stores any uploaded image files and fills the matching keys
// in q. An absent file field keeps whatever key q already carries.
func attachImages(w http.ResponseWriter, r *http.Request, bs storage.BlobStore, q *bank.Question) bool {
	fields := []struct {
		name string
		dst  *string
	}{
		{"question_image", &q.Image},
		{"option_a_image", &q.OptionAImage},
		{"option_b_image", &q.OptionBImage},
		{"option_c_image", &q.OptionCImage},
		{"option_d_image", &q.OptionDImage},
	}
	for _, f := range fields {
		file, hdr, err := r.FormFile(f.name)
		if err != nil {
			continue // not provided
		}
		data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageBytes+1))
		file.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": f.name + ": failed to read upload"})
			return false
		}
		key, err := storage.SaveImage(bs, q.SubjectID, hdr.Filename, data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": f.name + ": " + err.Error()})
			return false
		}
		*f.dst = key
	}
	return true
}
