package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rateboard-io/corpus/internal/domain"
)

// csvText renders the first record as a labeled header line and each
// following non-empty record as "Row <n>: <cells>", n counting emitted
// data rows from 1.
func csvText(path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", domain.NewExtractionError(name, domain.FileTypeCSV, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	// Exports from hotel PMS systems are frequently ragged.
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", domain.NewExtractionError(name, domain.FileTypeCSV, err)
	}
	if len(records) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(records))
	lines = append(lines, "Headers: "+strings.Join(records[0], cellDelimiter))

	rowNum := 0
	for _, record := range records[1:] {
		if rowIsEmpty(record) {
			continue
		}
		rowNum++
		lines = append(lines, fmt.Sprintf("Row %d: %s", rowNum, strings.Join(record, cellDelimiter)))
	}

	return strings.Join(lines, "\n"), nil
}
