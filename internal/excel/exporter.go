// Package excel projects one day's records into the paper collection form:
// a styled workbook with one sheet per group, replicating the fixed header
// layout the operators file.
package excel

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"coleta/internal/core"
)

const title = "COLETA DIÁRIA DE ROTAÇÕES DAS BOMBAS DO SISTEMA NORDSON"

const (
	titleRow        = 1
	dateRow         = 3
	headerTopRow    = 4
	headerSubRow    = 5
	firstDataRow    = 6
	headerRowHeight = 45
)

var monthsPT = [12]string{
	"JANEIRO", "FEVEREIRO", "MARÇO", "ABRIL", "MAIO", "JUNHO",
	"JULHO", "AGOSTO", "SETEMBRO", "OUTUBRO", "NOVEMBRO", "DEZEMBRO",
}

// Filename encodes the bundle's date as the operators expect the download.
func Filename(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "Coleta_Nordson_" + date + ".xlsx"
	}
	return "Coleta_Nordson_" + t.Format("02-01-2006") + ".xlsx"
}

type styles struct {
	data      int
	header    int
	title     int
	dateLabel int
}

// Write renders the bundle as a workbook. Sheets for empty group subsets are
// omitted. The workbook is written whole; any failure aborts the export.
func Write(w io.Writer, bundle core.DayBundle) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}

	first := true
	addSheet := func(spec *core.GroupSpec, records []core.Record) error {
		if len(records) == 0 {
			return nil
		}
		if first {
			if err := f.SetSheetName("Sheet1", spec.SheetName); err != nil {
				return fmt.Errorf("rename sheet %s: %w", spec.SheetName, err)
			}
			first = false
		} else if _, err := f.NewSheet(spec.SheetName); err != nil {
			return fmt.Errorf("add sheet %s: %w", spec.SheetName, err)
		}
		return writeSheet(f, st, spec, bundle.Date, records)
	}

	if err := addSheet(core.Spec(core.Grupo1), bundle.Grupo1); err != nil {
		return err
	}
	if err := addSheet(core.Spec(core.Grupo2), bundle.Grupo2); err != nil {
		return err
	}
	if first {
		return fmt.Errorf("no records for %s", bundle.Date)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	thin := []excelize.Border{
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	var st styles
	var err error

	st.data, err = f.NewStyle(&excelize.Style{Alignment: center, Border: thin})
	if err != nil {
		return st, err
	}
	st.header, err = f.NewStyle(&excelize.Style{
		Alignment: center,
		Border:    thin,
		Font:      &excelize.Font{Bold: true, Size: 10},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9D9D9"}},
	})
	if err != nil {
		return st, err
	}
	st.title, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return st, err
	}
	st.dateLabel, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Font:      &excelize.Font{Bold: true, Size: 10},
	})
	return st, err
}

func writeSheet(f *excelize.File, st styles, spec *core.GroupSpec, date string, records []core.Record) error {
	sheet := spec.SheetName
	totalCols := len(baseHeaders) + len(spec.Fields)

	// Title banner across every data column.
	lastCol, err := excelize.ColumnNumberToName(totalCols)
	if err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	if err := setCell(f, sheet, 1, titleRow, title, st.title); err != nil {
		return err
	}

	if err := writeDateLabels(f, st, sheet, date); err != nil {
		return err
	}
	if err := writeHeader(f, st, sheet, spec); err != nil {
		return err
	}

	for i, rec := range core.SortByLine(records) {
		row := firstDataRow + i
		values := make([]any, 0, totalCols)
		values = append(values, rec.Line, rec.SKU, rec.BagWeight)
		for _, field := range spec.Fields {
			values = append(values, rec.Measures[field.Name])
		}
		for col, v := range values {
			if err := setCell(f, sheet, col+1, row, v, st.data); err != nil {
				return err
			}
		}
	}

	return setWidths(f, sheet, spec)
}

func writeDateLabels(f *excelize.File, st styles, sheet, date string) error {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("parse bundle date %q: %w", date, err)
	}

	// The form's date strip is two merged boxes: the day numeral over B3:C3
	// and the month name over D3:E3.
	boxes := []struct {
		from, to int
		value    any
	}{
		{2, 3, t.Day()},
		{4, 5, monthsPT[t.Month()-1]},
	}
	for _, b := range boxes {
		from, err := excelize.CoordinatesToCellName(b.from, dateRow)
		if err != nil {
			return err
		}
		to, err := excelize.CoordinatesToCellName(b.to, dateRow)
		if err != nil {
			return err
		}
		if err := f.MergeCell(sheet, from, to); err != nil {
			return fmt.Errorf("merge date box %s:%s: %w", from, to, err)
		}
		if err := setCell(f, sheet, b.from, dateRow, b.value, st.dateLabel); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, from, to, st.dateLabel); err != nil {
			return err
		}
	}
	return nil
}

// writeHeader lays down the two-row header block: base columns and
// standalone fields merge vertically; grouped fields get a merged banner on
// the top row and sub-labels below.
func writeHeader(f *excelize.File, st styles, sheet string, spec *core.GroupSpec) error {
	col := 1
	for _, label := range baseHeaders {
		if err := mergedHeaderCell(f, st, sheet, col, label); err != nil {
			return err
		}
		col++
	}

	for _, group := range headerLayout(spec) {
		if len(group.Subs) == 0 {
			if err := mergedHeaderCell(f, st, sheet, col, group.Label); err != nil {
				return err
			}
			col++
			continue
		}

		from, err := excelize.CoordinatesToCellName(col, headerTopRow)
		if err != nil {
			return err
		}
		to, err := excelize.CoordinatesToCellName(col+len(group.Subs)-1, headerTopRow)
		if err != nil {
			return err
		}
		if err := f.MergeCell(sheet, from, to); err != nil {
			return fmt.Errorf("merge header group %q: %w", group.Label, err)
		}
		if err := setCell(f, sheet, col, headerTopRow, group.Label, st.header); err != nil {
			return err
		}
		// Style the hidden cells of the merge so borders stay continuous.
		if err := f.SetCellStyle(sheet, from, to, st.header); err != nil {
			return err
		}
		for _, sub := range group.Subs {
			if err := setCell(f, sheet, col, headerSubRow, sub, st.header); err != nil {
				return err
			}
			col++
		}
	}

	if err := f.SetRowHeight(sheet, headerTopRow, headerRowHeight); err != nil {
		return err
	}
	return f.SetRowHeight(sheet, headerSubRow, headerRowHeight)
}

// mergedHeaderCell writes a single-column header merged across both header
// rows.
func mergedHeaderCell(f *excelize.File, st styles, sheet string, col int, label string) error {
	top, err := excelize.CoordinatesToCellName(col, headerTopRow)
	if err != nil {
		return err
	}
	bottom, err := excelize.CoordinatesToCellName(col, headerSubRow)
	if err != nil {
		return err
	}
	if err := f.MergeCell(sheet, top, bottom); err != nil {
		return fmt.Errorf("merge header column %d: %w", col, err)
	}
	if err := f.SetCellValue(sheet, top, label); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, top, bottom, st.header)
}

func setWidths(f *excelize.File, sheet string, spec *core.GroupSpec) error {
	widths := make([]float64, 0, len(baseWidths)+len(spec.Fields))
	widths = append(widths, baseWidths...)
	for _, field := range spec.Fields {
		widths = append(widths, field.Width)
	}
	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, w); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
	}
	if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
		return fmt.Errorf("style cell %s!%s: %w", sheet, cell, err)
	}
	return nil
}
