package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet to write. Rows hold native Go values (string,
// integers, floats, bool, time.Time); nil leaves the cell empty.
type Sheet struct {
	Name string
	Rows [][]any
}

// Write builds an .xlsx workbook in memory from the given sheets.
func Write(sheets ...Sheet) ([]byte, error) {
	f, err := build(sheets)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile creates a new .xlsx file from the given sheets.
func WriteFile(path string, sheets ...Sheet) error {
	f, err := build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return nil
}

func build(sheets []Sheet) (*excelize.File, error) {
	f := excelize.NewFile()

	for i, sheet := range sheets {
		sheetName := sheet.Name
		if sheetName == "" {
			sheetName = fmt.Sprintf("Sheet%d", i+1)
		}

		if i == 0 {
			// Rename default sheet
			defaultSheet := f.GetSheetName(0)
			if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
				f.Close()
				return nil, fmt.Errorf("could not rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				f.Close()
				return nil, fmt.Errorf("could not create sheet %q: %w", sheetName, err)
			}
		}

		for rowIdx, row := range sheet.Rows {
			for colIdx, cell := range row {
				if cell == nil {
					continue
				}
				cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					f.Close()
					return nil, fmt.Errorf("invalid cell coordinates: %w", err)
				}
				if err := f.SetCellValue(sheetName, cellName, cell); err != nil {
					f.Close()
					return nil, fmt.Errorf("could not set cell %s: %w", cellName, err)
				}
			}
		}
	}

	return f, nil
}
