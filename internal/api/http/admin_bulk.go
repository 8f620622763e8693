package http

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/mcq-platform/backend/internal/bank"
)

const maxBulkUploadBytes = 64 << 20

// BulkUploadHandler accepts a multipart form with a "csv_file" part and an
// optional "images_zip" part, and imports every row it can.
func BulkUploadHandler(im *bank.Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxBulkUploadBytes); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		csvFile, _, err := r.FormFile("csv_file")
		if err != nil {
			http.Error(w, "csv_file is required", http.StatusBadRequest)
			return
		}
		defer csvFile.Close()

		var zr *zip.Reader
		if zf, _, err := r.FormFile("images_zip"); err == nil {
			defer zf.Close()
			data, err := io.ReadAll(io.LimitReader(zf, maxBulkUploadBytes))
			if err != nil {
				http.Error(w, "failed to read images_zip", http.StatusBadRequest)
				return
			}
			zr, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				http.Error(w, "images_zip is not a valid ZIP archive", http.StatusBadRequest)
				return
			}
		}

		res, err := im.Import(r.Context(), csvFile, zr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// TemplateCSVHandler serves the bulk-upload CSV template. ?sample=1 adds an
// example row.
func TemplateCSVHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="questions_template.csv"`)
		withSample := r.URL.Query().Get("sample") == "1"
		if err := bank.TemplateCSV(w, withSample); err != nil {
			http.Error(w, "failed to write template", http.StatusInternalServerError)
		}
	}
}

// RecomputeDifficultyHandler re-bands question difficulty from accumulated
// answer stats. ?min_attempts overrides the default sample floor.
func RecomputeDifficultyHandler(store bank.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var minAttempts int64
		if s := r.URL.Query().Get("min_attempts"); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n < 1 {
				http.Error(w, "bad min_attempts", http.StatusBadRequest)
				return
			}
			minAttempts = n
		}
		updated, err := store.RecomputeDifficulty(r.Context(), minAttempts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "updated": updated})
	}
}
