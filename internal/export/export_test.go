package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bher20/slotariff/internal/tariff"
)

func TestBuild_WinterWeekday(t *testing.T) {
	s := Build(time.Date(2025, 1, 15, 17, 45, 0, 0, time.UTC), tariff.DefaultPrices())

	require.Len(t, s.Rows, 24)
	assert.Equal(t, tariff.SeasonHigher, s.Season)
	assert.Equal(t, tariff.Weekday, s.DayType)
	assert.False(t, s.Holiday)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), s.Day)

	assert.Equal(t, tariff.Block(3), s.Rows[0].Block)
	assert.Equal(t, tariff.OffPeak, s.Rows[0].EnergyTariff)
	assert.Equal(t, tariff.Block(1), s.Rows[10].Block)
	assert.Equal(t, tariff.Peak, s.Rows[10].EnergyTariff)
	assert.Equal(t, "0.14234", s.Rows[10].TotalPrice.String())
}

func TestBuild_Holiday(t *testing.T) {
	s := Build(time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), tariff.DefaultPrices())
	assert.True(t, s.Holiday)
	assert.Equal(t, tariff.WeekendOrHoliday, s.DayType)
	for _, r := range s.Rows {
		assert.Equal(t, tariff.OffPeak, r.EnergyTariff)
		assert.GreaterOrEqual(t, int(r.Block), 2)
	}
}

func TestXLSX(t *testing.T) {
	s := Build(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), tariff.DefaultPrices())
	data, err := XLSX(s)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("tariff", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Electricity tariff 2025-01-15", title)

	rows, err := f.GetRows("tariff")
	require.NoError(t, err)
	// title, three summary lines, blank, header, 24 hours
	assert.Len(t, rows, 30)

	hour, err := f.GetCellValue("tariff", "A17")
	require.NoError(t, err)
	assert.Equal(t, "10:00", hour)
	block, err := f.GetCellValue("tariff", "B17")
	require.NoError(t, err)
	assert.Equal(t, "1", block)
}

func TestPDF(t *testing.T) {
	s := Build(time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC), tariff.DefaultPrices())
	data, err := PDF(s)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRender_UnknownFormat(t *testing.T) {
	_, _, err := Render("csv", Sheet{})
	assert.Error(t, err)

	_, ct, err := Render("pdf", Build(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), tariff.DefaultPrices()))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ct)
}
