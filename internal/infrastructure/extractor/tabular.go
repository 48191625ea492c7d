package extractor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

func extractExcelRows(content []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var units []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		units = append(units, rowUnits(rows)...)
	}
	return units, nil
}

func extractCSVRows(content []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rowUnits(rows), nil
}

func rowUnits(rows [][]string) []string {
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]
	units := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		unit := rowText(header, row)
		if unit == "" {
			continue
		}
		units = append(units, unit)
	}
	return units
}
