// pkg/extract/spreadsheet.go
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sheetHeader labels each sheet's block in the concatenated output.
func sheetHeader(name string) string {
	return fmt.Sprintf("=== %s ===", name)
}

// spreadsheetText converts every sheet of a workbook independently into
// a tab-delimited text block labelled by sheet name, concatenated in
// the sheets' original order.
func spreadsheetText(data []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	var blocks []string
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("reading sheet %q: %w", sheet, err)
		}

		var sb strings.Builder
		sb.WriteString(sheetHeader(sheet))
		for _, row := range rows {
			sb.WriteByte('\n')
			sb.WriteString(strings.Join(row, "\t"))
		}
		blocks = append(blocks, sb.String())
	}

	return strings.Join(blocks, "\n\n"), nil
}
