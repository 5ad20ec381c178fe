// Package export renders the hourly tariff sheet for one day as XLSX or PDF.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/bher20/slotariff/internal/tariff"
)

// Row is the tariff at the start of one hour.
type Row struct {
	Start        time.Time
	Block        tariff.Block
	EnergyTariff tariff.EnergyTariff
	EnergyPrice  decimal.Decimal
	NetworkPrice decimal.Decimal
	TotalPrice   decimal.Decimal
}

// Sheet is a day of hourly rows plus the day-level facts.
type Sheet struct {
	Day     time.Time
	Season  tariff.Season
	DayType tariff.DayType
	Holiday bool
	Rows    []Row
}

// Build computes 24 hourly rows for day in day's location. On the spring
// DST change the missing hour is normalised forward by time.Date.
func Build(day time.Time, prices tariff.PriceTable) Sheet {
	y, m, d := day.Date()
	loc := day.Location()
	first := tariff.Compute(time.Date(y, m, d, 0, 0, 0, 0, loc), prices)
	s := Sheet{
		Day:     time.Date(y, m, d, 0, 0, 0, 0, loc),
		Season:  first.Season,
		DayType: first.DayType,
		Holiday: first.IsHoliday,
		Rows:    make([]Row, 0, 24),
	}
	for h := 0; h < 24; h++ {
		at := time.Date(y, m, d, h, 0, 0, 0, loc)
		r := tariff.Compute(at, prices)
		s.Rows = append(s.Rows, Row{
			Start:        at,
			Block:        r.CurrentBlock,
			EnergyTariff: r.EnergyTariff,
			EnergyPrice:  r.EnergyPrice,
			NetworkPrice: r.NetworkPrice,
			TotalPrice:   r.TotalPrice,
		})
	}
	return s
}

var columns = []string{"Hour", "Block", "Energy tariff", "Energy (EUR/kWh)", "Network (EUR/kWh)", "Total (EUR/kWh)"}

func (s Sheet) title() string {
	return fmt.Sprintf("Electricity tariff %s", s.Day.Format("2006-01-02"))
}

func (s Sheet) summary() []string {
	return []string{
		fmt.Sprintf("Season: %s", s.Season),
		fmt.Sprintf("Day type: %s", s.DayType),
		fmt.Sprintf("Holiday: %t", s.Holiday),
	}
}

// XLSX renders the sheet as a workbook with a single "tariff" sheet.
func XLSX(s Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "tariff"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(sheet, "A1", s.title())
	for i, line := range s.summary() {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), line)
	}

	const header = 6
	for i, c := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, header)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, c)
	}
	for i, r := range s.Rows {
		row := header + 1 + i
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.Start.Format("15:04"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), int(r.Block))
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.EnergyTariff.Code())
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.EnergyPrice.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.NetworkPrice.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.TotalPrice.InexactFloat64())
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDF renders the sheet as a one-page A4 table.
func PDF(s Sheet) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, s.title())
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, line := range s.summary() {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	widths := []float64{20, 15, 25, 40, 40, 40}
	pdf.SetFont("Arial", "B", 9)
	for i, c := range columns {
		pdf.CellFormat(widths[i], 6, c, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, r := range s.Rows {
		pdf.CellFormat(widths[0], 6, r.Start.Format("15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%d", r.Block), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 6, r.EnergyTariff.Code(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, r.EnergyPrice.StringFixed(5), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, r.NetworkPrice.StringFixed(5), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, r.TotalPrice.StringFixed(5), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	for _, b := range tariff.Blocks() {
		pdf.Cell(0, 5, tr(fmt.Sprintf("Block %d: %s", b, b.Description())))
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render dispatches on format ("xlsx" or "pdf") and returns the document
// and its content type.
func Render(format string, s Sheet) ([]byte, string, error) {
	switch format {
	case "xlsx":
		b, err := XLSX(s)
		return b, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	case "pdf":
		b, err := PDF(s)
		return b, "application/pdf", err
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}
