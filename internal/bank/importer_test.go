package bank_test

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/mcq-platform/backend/internal/bank"
	"github.com/mcq-platform/backend/internal/storage"
)

func newTestImporter(t *testing.T) (*bank.Importer, bank.Store) {
	t.Helper()
	dbh := openTestDB(t)
	store := bank.NewSQLStore(dbh, "sqlite")
	bs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	return bank.NewImporter(store, bs), store
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func zipWith(t *testing.T, files map[string][]byte) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip reader: %v", err)
	}
	return zr
}

const csvHeader = "subject,question_text,option_a,option_b,option_c,option_d,correct_option,question_image\n"

func TestImportCreatesQuestions(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()
	if _, err := store.CreateSubject(ctx, "Physics"); err != nil {
		t.Fatalf("create subject: %v", err)
	}

	csv := csvHeader +
		"Physics,What is light?,wave,particle,both,neither,C,\n" +
		"physics,What is mass?,a,b,c,d,a,\n" // subject match and option are case-insensitive
	res, err := im.Import(ctx, strings.NewReader(csv), nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 2 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}

	qs, err := store.ListQuestions(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("%d questions stored", len(qs))
	}
}

func TestImportRowsFailIndependently(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()
	if _, err := store.CreateSubject(ctx, "Physics"); err != nil {
		t.Fatalf("create subject: %v", err)
	}

	csv := csvHeader +
		"Physics,good row,a,b,c,d,A,\n" +
		"Biology,unknown subject,a,b,c,d,A,\n" +
		"Physics,bad option,a,b,c,d,X,\n" +
		"Physics,,a,b,c,d,A,\n" // missing question_text
	res, err := im.Import(ctx, strings.NewReader(csv), nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Created)
	}
	if res.Failed != 3 || len(res.Errors) != 3 {
		t.Fatalf("failed = %d errors = %v", res.Failed, res.Errors)
	}
	for _, msg := range res.Errors {
		if !strings.HasPrefix(msg, "row ") {
			t.Fatalf("error without row number: %q", msg)
		}
	}
}

func TestImportMissingColumn(t *testing.T) {
	im, _ := newTestImporter(t)
	csv := "subject,question_text,option_a,option_b,option_c,option_d\nPhysics,q,a,b,c,d\n"
	_, err := im.Import(context.Background(), strings.NewReader(csv), nil)
	if err == nil || !strings.Contains(err.Error(), "correct_option") {
		t.Fatalf("err = %v, want missing-column error", err)
	}
}

func TestImportStripsBOM(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()
	if _, err := store.CreateSubject(ctx, "Physics"); err != nil {
		t.Fatalf("create subject: %v", err)
	}

	csv := "\xEF\xBB\xBF" + csvHeader + "Physics,bom row,a,b,c,d,A,\n"
	res, err := im.Import(ctx, strings.NewReader(csv), nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestImportResolvesZipImages(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()
	if _, err := store.CreateSubject(ctx, "Physics"); err != nil {
		t.Fatalf("create subject: %v", err)
	}

	zr := zipWith(t, map[string][]byte{"images/Diagram.PNG": pngBytes(t)})
	csv := csvHeader +
		"Physics,with image,a,b,c,d,A,diagram.png\n" + // basename, case-insensitive
		"Physics,missing image,a,b,c,d,A,nope.png\n"
	res, err := im.Import(ctx, strings.NewReader(csv), zr)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	// Both rows insert; an unresolvable image only costs the image.
	if res.Created != 2 {
		t.Fatalf("created = %d, want 2", res.Created)
	}
	if res.Failed != 1 {
		t.Fatalf("failed = %d, want 1 (missing image)", res.Failed)
	}

	qs, err := store.ListQuestions(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var withImage, without int
	for _, q := range qs {
		if q.Image != "" {
			withImage++
		} else {
			without++
		}
	}
	if withImage != 1 || without != 1 {
		t.Fatalf("images: with=%d without=%d", withImage, without)
	}
}

func TestImportWithoutZipRejectsImageRefs(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()
	if _, err := store.CreateSubject(ctx, "Physics"); err != nil {
		t.Fatalf("create subject: %v", err)
	}

	csv := csvHeader + "Physics,q,a,b,c,d,A,pic.png\n"
	res, err := im.Import(ctx, strings.NewReader(csv), nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 1 || res.Failed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Errors[0], "no ZIP") {
		t.Fatalf("error = %q", res.Errors[0])
	}
}

func TestTemplateCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := bank.TemplateCSV(&buf, false); err != nil {
		t.Fatalf("template: %v", err)
	}
	header := strings.TrimSpace(buf.String())
	for _, col := range []string{"subject", "question_text", "correct_option", "option_d_image"} {
		if !strings.Contains(header, col) {
			t.Fatalf("header missing %s: %q", col, header)
		}
	}

	buf.Reset()
	if err := bank.TemplateCSV(&buf, true); err != nil {
		t.Fatalf("template with sample: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("%d lines, want header + sample", len(lines))
	}
}
