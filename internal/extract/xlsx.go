package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rateboard-io/corpus/internal/domain"
)

// xlsxText renders each worksheet as a "Sheet: <name>" header line followed
// by one line per non-empty row, worksheets in workbook order. Empty rows
// are skipped; an empty worksheet contributes only its header line.
func xlsxText(path, name string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", domain.NewExtractionError(name, domain.FileTypeXLSX, err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", domain.NewExtractionError(name, domain.FileTypeXLSX,
				fmt.Errorf("reading sheet %q: %w", sheet, err))
		}

		lines = append(lines, "Sheet: "+sheet)
		for _, row := range rows {
			if rowIsEmpty(row) {
				continue
			}
			lines = append(lines, strings.Join(row, cellDelimiter))
		}
	}

	return strings.Join(lines, "\n"), nil
}
