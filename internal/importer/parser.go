// Package importer turns an uploaded spreadsheet into a batch of contacts.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const (
	MIMETypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMETypeXLS  = "application/vnd.ms-excel"
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

	errEmptyFile     = errors.New("file is empty")
	errUnknownFormat = errors.New("not an xlsx or xls workbook")
	errNoSheets      = errors.New("workbook has no sheets")
)

// Grid is the used range of a workbook's first sheet: index 0 is the first
// non-empty row and column 0 the first non-empty column. Rows may be shorter
// than the widest row. Numeric zero cells are blank, as they hold no value.
type Grid [][]string

// maxXLSColumns bounds the column scan of legacy rows that carry no extent.
const maxXLSColumns = 256

// Accepts mirrors the upload accept filter: xlsx or xls by MIME type, with
// the extension as a fallback for clients that send a generic type.
func Accepts(contentType, fileName string) bool {
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	switch mediaType {
	case MIMETypeXLSX, MIMETypeXLS:
		return true
	case "", "application/octet-stream":
		ext := strings.ToLower(filepath.Ext(fileName))
		return ext == ".xlsx" || ext == ".xls"
	}
	return false
}

// ParseWorkbook decodes data as an xlsx or xls workbook and returns the cells
// of its first sheet as text. Decoder panics on corrupt input are returned as
// errors.
func ParseWorkbook(data []byte) (grid Grid, err error) {
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = fmt.Errorf("corrupt workbook: %v", r)
		}
	}()

	switch {
	case len(data) == 0:
		return nil, errEmptyFile
	case bytes.HasPrefix(data, zipMagic):
		return parseXLSX(data)
	case bytes.HasPrefix(data, ole2Magic):
		return parseXLS(data)
	}
	return nil, errUnknownFormat
}

func parseXLSX(data []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoSheets
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	top, left := usedOrigin(rows)

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	for r, row := range raw {
		for c, v := range row {
			if r >= len(rows) || c >= len(rows[r]) || !isZero(v) {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, name)
			if err != nil {
				return nil, fmt.Errorf("read cell %s: %w", name, err)
			}
			if typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber {
				rows[r][c] = ""
			}
		}
	}

	return anchor(rows, top, left), nil
}

func parseXLS(data []byte) (Grid, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb == nil {
		return nil, errors.New("open xls: no workbook stream")
	}
	if wb.NumSheets() == 0 {
		return nil, errNoSheets
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errNoSheets
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		width := row.LastCol()
		if width <= 0 {
			width = maxXLSColumns
		}
		cells := make([]string, width)
		for j := range cells {
			// the decoder does not expose cell types; a number renders as
			// "0" only when it is zero
			if v := row.Col(j); v != "0" {
				cells[j] = v
			}
		}
		rows = append(rows, trimTrailing(cells))
	}
	top, left := usedOrigin(rows)
	return anchor(rows, top, left), nil
}

// xlsRow returns nil for rows the sheet does not define. The decoder
// dereferences missing rows.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// usedOrigin finds the first row and column holding a value.
func usedOrigin(rows [][]string) (top, left int) {
	top, left = -1, -1
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			if top < 0 {
				top = r
			}
			if left < 0 || c < left {
				left = c
			}
		}
	}
	if top < 0 {
		return len(rows), 0
	}
	return top, left
}

// anchor drops the rows above top and the columns left of left.
func anchor(rows [][]string, top, left int) Grid {
	grid := make(Grid, 0, len(rows)-top)
	for _, row := range rows[top:] {
		if left >= len(row) {
			grid = append(grid, nil)
			continue
		}
		grid = append(grid, row[left:])
	}
	return grid
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}

func isZero(v string) bool {
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == 0
}
