// Package extract converts uploaded files into normalized UTF-8 text.
// Each declared format has its own typed parser; unsupported formats fail
// loudly so callers never mistake empty output for success.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rateboard-io/corpus/internal/domain"
)

// Cell values inside spreadsheet and CSV row lines are joined with this.
const cellDelimiter = ", "

// Extractor normalizes heterogeneous upload formats into plain text.
type Extractor struct{}

// New creates a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Text reads the file at path and returns its readable content as a single
// UTF-8 string. The declared type decides the parser; content is never
// sniffed. Failures carry the originating filename and declared type.
func (e *Extractor) Text(path string, fileType domain.FileType) (string, error) {
	name := filepath.Base(path)

	switch fileType {
	case domain.FileTypeTXT, domain.FileTypeMD:
		return plainText(path, name, fileType)
	case domain.FileTypeDOCX:
		return docxText(path, name)
	case domain.FileTypeXLSX:
		return xlsxText(path, name)
	case domain.FileTypeCSV:
		return csvText(path, name)
	default:
		// PDF lands here: declared but not implemented.
		return "", domain.NewUnsupportedFileTypeError(name, fileType)
	}
}

func plainText(path, name string, fileType domain.FileType) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewExtractionError(name, fileType, err)
	}

	if !utf8.Valid(data) {
		return "", domain.NewExtractionError(name, fileType, fmt.Errorf("content is not valid UTF-8"))
	}

	return string(data), nil
}

func rowIsEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
