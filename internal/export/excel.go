package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"inspectsync/internal/models"
	"inspectsync/internal/snapshot"
)

// SheetName is the worksheet holding the bookings.
const SheetName = "Bookings"

// workbook wraps an excelize file with a single bookings sheet.
type workbook struct {
	file       *excelize.File
	currentRow int
	widths     []int
}

func newWorkbook() *workbook {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetName)
	return &workbook{file: f, currentRow: 1}
}

// writeHeader writes column headers in bold and freezes the header row.
func (w *workbook) writeHeader(columns []string) error {
	if err := w.writeRow(columns); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = w.file.SetCellStyle(SheetName, startCell, endCell, style)
	}

	return w.file.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// writeRow writes string cells to the next row.
func (w *workbook) writeRow(row []string) error {
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellStr(SheetName, cell, val); err != nil {
			return err
		}
		w.track(i, len([]rune(val)))
	}
	w.currentRow++
	return nil
}

func (w *workbook) track(col, width int) {
	for len(w.widths) <= col {
		w.widths = append(w.widths, 0)
	}
	if width > w.widths[col] {
		w.widths[col] = width
	}
}

// fitColumns sizes every column to its longest value, capped at 60.
func (w *workbook) fitColumns() error {
	for i, width := range w.widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if width > 60 {
			width = 60
		}
		if err := w.file.SetColWidth(SheetName, name, name, float64(width+2)); err != nil {
			return err
		}
	}
	return nil
}

func (w *workbook) close() error {
	return w.file.Close()
}

// XLSXMirror keeps an Excel copy of the snapshot next to the CSV.
type XLSXMirror struct {
	path string
}

func NewXLSXMirror(path string) *XLSXMirror {
	return &XLSXMirror{path: path}
}

func (m *XLSXMirror) Name() string {
	return "xlsx"
}

// Mirror rewrites the workbook from s.
func (m *XLSXMirror) Mirror(_ context.Context, s *snapshot.Snapshot) error {
	wb := newWorkbook()
	defer wb.close()

	if err := wb.writeHeader(models.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range s.Bookings() {
		if err := wb.writeRow(b.Row()); err != nil {
			return fmt.Errorf("write booking %s: %w", b.ID, err)
		}
	}
	if err := wb.fitColumns(); err != nil {
		return fmt.Errorf("fit columns: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(m.path)+".tmp.xlsx")
	if err := wb.file.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}
