// Package csvrows reads crop rows for bulk upload from CSV.
package csvrows

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TeninChristopher/SAM/internal/service"
)

var requiredColumns = []string{"name", "quantity", "reap_date"}

// Read parses a header row followed by crop rows. Values are passed through
// raw; row validation belongs to the ledger.
func Read(r io.Reader) ([]service.ProductRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv is missing required columns: %s", strings.Join(missing, ", "))
	}

	rows := make([]service.ProductRow, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, service.ProductRow{
			Line:     line,
			CropName: field(record, index["name"]),
			Quantity: field(record, index["quantity"]),
			ReapDate: field(record, index["reap_date"]),
		})
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
