package utils

import (
	"encoding/csv"
	"os"
	"strings"
)

// ReadSymbolsFile loads a symbol list from a CSV file. Both layouts are
// accepted: one symbol per line, or several comma-separated per line.
// Symbols are trimmed and uppercased; blank cells are skipped.
func ReadSymbolsFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Variable row widths

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var symbols []string
	for _, row := range rows {
		for _, cell := range row {
			symbol := strings.ToUpper(strings.TrimSpace(cell))
			if symbol != "" {
				symbols = append(symbols, symbol)
			}
		}
	}
	return symbols, nil
}

// WriteSymbolsFile exports a symbol list, one symbol per row.
func WriteSymbolsFile(symbols []string, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	for _, symbol := range symbols {
		writer.Write([]string{symbol})
	}
	return writer.Error()
}
