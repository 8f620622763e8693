package storage_test

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/mcq-platform/backend/internal/storage"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newStore(t *testing.T) *storage.FSStore {
	t.Helper()
	bs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	return bs
}

func TestSaveImageRoundTrip(t *testing.T) {
	bs := newStore(t)
	data := pngBytes(t)

	key, err := storage.SaveImage(bs, 7, "Diagram.PNG", data)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(key, "7/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("key = %q", key)
	}

	rc, err := bs.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("stored bytes differ")
	}
}

func TestSaveImageRejections(t *testing.T) {
	bs := newStore(t)
	valid := pngBytes(t)

	cases := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"svg blocked", "sketch.svg", valid},
		{"no extension", "diagram", valid},
		{"empty file", "empty.png", nil},
		{"not an image", "fake.png", []byte("just text pretending")},
		{"oversized", "big.png", make([]byte, storage.MaxImageBytes+1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := storage.SaveImage(bs, 1, tc.filename, tc.data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFSStorePut(t *testing.T) {
	bs := newStore(t)
	if _, err := bs.Put("", strings.NewReader("x")); err == nil {
		t.Fatal("empty key accepted")
	}
	key, err := bs.Put("a/b/c.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "a/b/c.txt" {
		t.Fatalf("key = %q", key)
	}
	if _, err := bs.Get("a/missing.txt"); err == nil {
		t.Fatal("missing key readable")
	}
}
