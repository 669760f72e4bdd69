package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/tablelog/pkg/report"
	"github.com/logflow/tablelog/pkg/stats"
)

// Sheet names in the report workbook.
const (
	SheetReport = "Report"
	SheetSeries = "Series"
)

// WriteXLSX writes the report workbook to path.
func WriteXLSX(path string, r *report.Report, samples *stats.Samples) error {
	f, err := buildWorkbook(r, samples)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// WriteXLSXTo writes the report workbook to w.
func WriteXLSXTo(w io.Writer, r *report.Report, samples *stats.Samples) error {
	f, err := buildWorkbook(r, samples)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(r *report.Report, samples *stats.Samples) (*excelize.File, error) {
	if samples == nil {
		samples = &stats.Samples{}
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetReport)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeReportSheet(f, r, bold); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSeriesSheet(f, samples, bold); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeReportSheet(f *excelize.File, r *report.Report, headerStyle int) error {
	rows := [][]interface{}{{"Statistic", "Value"}}
	for _, e := range r.Entries {
		rows = append(rows, []interface{}{e.Label, cellValue(e.Value)})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Run ID", r.Meta.RunID},
		[]interface{}{"Source", r.Meta.Source},
		[]interface{}{"Snapshots", r.Meta.Snapshots},
	)
	if !r.Meta.GeneratedAt.IsZero() {
		rows = append(rows, []interface{}{"Generated at", r.Meta.GeneratedAt.UTC().Format(time.RFC3339)})
	}

	if err := setRows(f, SheetReport, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetReport, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", SheetReport, err)
	}
	return f.SetColWidth(SheetReport, "A", "A", 52)
}

func writeSeriesSheet(f *excelize.File, samples *stats.Samples, headerStyle int) error {
	if _, err := f.NewSheet(SheetSeries); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", SheetSeries, err)
	}

	series := []struct {
		name   string
		values []int
	}{
		{"Queue size (groups)", samples.QueueGroups},
		{"Kitchen queue (orders)", samples.KitchenOrders},
		{"Active waiters", samples.ActiveWaiters},
	}

	rows := [][]interface{}{{"Series", "Count", "Mean", "Min", "Max"}}
	for _, s := range series {
		sum := stats.Summarize(s.values)
		if !sum.Valid {
			rows = append(rows, []interface{}{s.name, 0, report.NotAvailable, report.NotAvailable, report.NotAvailable})
			continue
		}
		rows = append(rows, []interface{}{s.name, sum.Count, report.Float(sum.Mean, true).Number, sum.Min, sum.Max})
	}

	if err := setRows(f, SheetSeries, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSeries, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", SheetSeries, err)
	}
	return f.SetColWidth(SheetSeries, "A", "A", 28)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellValue keeps defined statistics numeric so spreadsheets can compute with them.
func cellValue(v report.Value) interface{} {
	switch {
	case !v.Valid:
		return report.NotAvailable
	case v.Integer:
		return int64(v.Number)
	default:
		return v.Number
	}
}
