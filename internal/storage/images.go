package storage

import (
	"bytes"
	"fmt"
	"image"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	_ "image/gif"  // decoders for the sniff below
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// MaxImageBytes caps uploaded question/option images.
const MaxImageBytes = 1 << 20 // 1 MiB

// svg stays out of the list deliberately (script injection risk).
var allowedImageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
}

// SaveImage validates raw image bytes and stores them under
// <subjectID>/<uuid>.<ext>, returning the relative key persisted in the DB.
func SaveImage(bs BlobStore, subjectID int64, originalName string, data []byte) (string, error) {
	ext := imageExt(originalName)
	if !allowedImageExts[ext] {
		return "", fmt.Errorf("unsupported file type, allowed: %s", allowedExtList())
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("file too large (>%d bytes)", MaxImageBytes)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("uploaded file is not a valid image")
	}

	key := path.Join(strconv.FormatInt(subjectID, 10), uuid.NewString()+"."+ext)
	return bs.Put(key, bytes.NewReader(data))
}

func imageExt(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(path.Base(name)), "."))
	return ext
}

func allowedExtList() string {
	exts := make([]string, 0, len(allowedImageExts))
	for e := range allowedImageExts {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
