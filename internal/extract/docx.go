package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/rateboard-io/corpus/internal/domain"
)

// documentXML mirrors the subset of WordprocessingML the extractor reads:
// body paragraphs, their runs, and the text nodes inside each run.
// Formatting, tables, images and embedded objects are ignored.
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxTextNode `xml:"t"`
}

type docxTextNode struct {
	Content string `xml:",chardata"`
}

// docxText extracts paragraph text from word/document.xml inside the DOCX
// zip container, joining paragraphs with newlines.
func docxText(path, name string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", domain.NewExtractionError(name, domain.FileTypeDOCX, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", domain.NewExtractionError(name, domain.FileTypeDOCX, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", domain.NewExtractionError(name, domain.FileTypeDOCX, err)
		}

		return parseDocumentXML(content, name)
	}

	return "", domain.NewExtractionError(name, domain.FileTypeDOCX,
		fmt.Errorf("word/document.xml not found in archive"))
}

func parseDocumentXML(content []byte, name string) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", domain.NewExtractionError(name, domain.FileTypeDOCX, err)
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, text := range run.Text {
				b.WriteString(text.Content)
			}
		}
	}

	return strings.TrimSpace(b.String()), nil
}
