package bank

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/mcq-platform/backend/internal/storage"
)

var requiredColumns = []string{
	"subject", "question_text", "option_a", "option_b", "option_c", "option_d", "correct_option",
}

var imageColumns = []string{
	"question_image",
	"option_a_image", "option_b_image", "option_c_image", "option_d_image",
}

// ImportResult accounts for a bulk upload. Rows fail independently; a bad
// row never blocks the rest of the file.
type ImportResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Importer runs the CSV(+ZIP) bulk-upload pipeline: validate each row, pull
// referenced images out of the ZIP, insert the question.
type Importer struct {
	store Store
	blobs storage.BlobStore
}

func NewImporter(store Store, blobs storage.BlobStore) *Importer {
	return &Importer{store: store, blobs: blobs}
}

// Import reads questions from csvSrc. zr may be nil when no image archive
// was uploaded; image cells then fail their row's image only.
func (im *Importer) Import(ctx context.Context, csvSrc io.Reader, zr *zip.Reader) (ImportResult, error) {
	res := ImportResult{Errors: []string{}}

	cr := csv.NewReader(bomReader(csvSrc))
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return res, fmt.Errorf("failed to read CSV: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return res, fmt.Errorf("CSV missing required column: %s", col)
		}
	}

	members := zipMembers(zr)

	rowNum := 1 // header = row 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("failed to read CSV: %w", err)
		}
		rowNum++

		cell := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		rowErr := func(msg string) {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", rowNum, msg))
		}

		missing := false
		for _, col := range requiredColumns {
			if cell(col) == "" {
				rowErr("missing required field: " + col)
				missing = true
				break
			}
		}
		if missing {
			continue
		}

		subjectID, err := im.store.SubjectIDByName(ctx, cell("subject"))
		if err != nil {
			if errors.Is(err, ErrSubjectNotFound) {
				rowErr(fmt.Sprintf("subject %q not found, create it first", cell("subject")))
			} else {
				rowErr(err.Error())
			}
			continue
		}

		q := Question{
			SubjectID:     subjectID,
			Text:          cell("question_text"),
			OptionA:       cell("option_a"),
			OptionB:       cell("option_b"),
			OptionC:       cell("option_c"),
			OptionD:       cell("option_d"),
			CorrectOption: cell("correct_option"),
		}
		if err := q.Validate(); err != nil {
			rowErr(err.Error())
			continue
		}

		images := make(map[string]string, len(imageColumns))
		for _, col := range imageColumns {
			name := cell(col)
			if name == "" {
				continue
			}
			key, err := im.resolveImage(members, subjectID, name)
			if err != nil {
				rowErr(fmt.Sprintf("%s: %v", col, err))
				continue
			}
			images[col] = key
		}
		q.Image = images["question_image"]
		q.OptionAImage = images["option_a_image"]
		q.OptionBImage = images["option_b_image"]
		q.OptionCImage = images["option_c_image"]
		q.OptionDImage = images["option_d_image"]

		if err := im.store.CreateQuestion(ctx, &q); err != nil {
			rowErr("database error while inserting: " + err.Error())
			continue
		}
		res.Created++
	}

	res.Failed = len(res.Errors)
	return res, nil
}

func (im *Importer) resolveImage(members map[string]*zip.File, subjectID int64, name string) (string, error) {
	if members == nil {
		return "", fmt.Errorf("refers to %q but no ZIP was uploaded", name)
	}
	f, ok := members[strings.ToLower(path.Base(name))]
	if !ok {
		return "", fmt.Errorf("image %q not found in ZIP", name)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to read %q from ZIP", name)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, storage.MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %q from ZIP", name)
	}
	return storage.SaveImage(im.blobs, subjectID, name, data)
}

// zipMembers maps lowercased basenames to archive entries, directories
// stripped.
func zipMembers(zr *zip.Reader) map[string]*zip.File {
	if zr == nil {
		return nil
	}
	m := map[string]*zip.File{}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		m[strings.ToLower(path.Base(f.Name))] = f
	}
	return m
}

// bomReader strips a UTF-8 BOM if present (spreadsheets love to add one).
func bomReader(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, _ := io.ReadFull(r, buf)
	if n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}

// TemplateCSV writes the bulk-upload header row, optionally with one sample
// row, to w.
func TemplateCSV(w io.Writer, withSample bool) error {
	cw := csv.NewWriter(w)
	header := []string{
		"subject",
		"question_text", "question_image",
		"option_a", "option_a_image",
		"option_b", "option_b_image",
		"option_c", "option_c_image",
		"option_d", "option_d_image",
		"correct_option",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	if withSample {
		sample := []string{
			"Physics",
			`What is \(E=mc^2\)?`, "",
			"Energy equivalence", "",
			"Mass", "",
			"Speed of light", "c.png",
			"All of these", "",
			"D",
		}
		if err := cw.Write(sample); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
