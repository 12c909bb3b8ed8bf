// Package storage persists dispatch documents (weighbridge slips, delivery
// challans, photos) and returns the URL recorded on the dispatch.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store puts one object and returns where it can be fetched from.
type Store interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (url string, err error)
}

// objectName builds a collision-free name such as
// 20250516-153225-<uuid>-slip_01.pdf.
func objectName(now time.Time, name string) string {
	return fmt.Sprintf("%s-%s-%s", now.UTC().Format("20060102-150405"), uuid.NewString(), sanitizeFilename(name))
}

func sanitizeFilename(filename string) string {
	// drop any client-supplied directory part
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" || filename == "" {
		return "document"
	}

	replacements := map[rune]rune{
		'/':  '_',
		'\\': '_',
		':':  '_',
		'*':  '_',
		'?':  '_',
		'"':  '_',
		'<':  '_',
		'>':  '_',
		'|':  '_',
		' ':  '_',
	}

	result := []rune{}
	for _, char := range filename {
		if replacement, exists := replacements[char]; exists {
			result = append(result, replacement)
		} else {
			result = append(result, char)
		}
	}

	return string(result)
}
