package snapshot

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"PowerPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) *string { return &v }

func fullRow() models.SnapshotRow {
	return models.SnapshotRow{
		Date:            s("01-07-2025"),
		Hour:            s("15"),
		TimeBlock:       s("57"),
		PurchaseBid:     s("12,345.5"),
		SellBid:         s("9876"),
		ClearedVolume:   s("8000"),
		ScheduledVolume: s("7990.25"),
		Price:           s("4500.75"),
	}
}

func TestMapFullRow(t *testing.T) {
	rec, err := NewMapper(true).Map(fullRow())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, models.HourSlot{Hour: 15}, rec.Slot, "hour wins over time block")

	v, ok := rec.Value(models.MeasurePurchaseBid)
	require.True(t, ok)
	assert.Equal(t, 12345.5, v)
	v, ok = rec.Value(models.MeasurePrice)
	require.True(t, ok)
	assert.Equal(t, 4500.75, v)
}

func TestMapSlotPrecedence(t *testing.T) {
	m := NewMapper(false)

	row := models.SnapshotRow{Date: s("01-07-2025"), TimeBlock: s("5")}
	rec, err := m.Map(row)
	require.NoError(t, err)
	assert.Equal(t, models.BlockSlot{Block: 5}, rec.Slot)

	row = models.SnapshotRow{Date: s("01-07-2025"), TimeBlock: s("09:15 - 09:30")}
	rec, err = m.Map(row)
	require.NoError(t, err)
	assert.Equal(t, models.RangeSlot{Text: "09:15 - 09:30"}, rec.Slot)

	row = models.SnapshotRow{Date: s("01-07-2025")}
	rec, err = m.Map(row)
	require.NoError(t, err)
	assert.Nil(t, rec.Slot)
}

func TestMapEmptyMeasuresAreUnavailable(t *testing.T) {
	row := models.SnapshotRow{Date: s("2025-07-01"), Hour: s("1"), Price: s("  ")}
	rec, err := NewMapper(false).Map(row)
	require.NoError(t, err)
	_, ok := rec.Value(models.MeasurePrice)
	assert.False(t, ok)
}

func TestMapDropsMalformedRows(t *testing.T) {
	tests := map[string]func(r *models.SnapshotRow){
		"missing date":       func(r *models.SnapshotRow) { r.Date = nil },
		"unparsable date":    func(r *models.SnapshotRow) { r.Date = s("31-02-2025") },
		"non numeric bid":    func(r *models.SnapshotRow) { r.PurchaseBid = s("N/A") },
		"non numeric price":  func(r *models.SnapshotRow) { r.Price = s("--") },
		"negative volume":    func(r *models.SnapshotRow) { r.ClearedVolume = s("-5") },
		"hour out of range":  func(r *models.SnapshotRow) { r.Hour = s("25") },
		"fractional hour":    func(r *models.SnapshotRow) { r.Hour = s("2.5") },
		"block out of range": func(r *models.SnapshotRow) { r.Hour = nil; r.TimeBlock = s("97") },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			row := fullRow()
			mutate(&row)
			_, err := NewMapper(false).Map(row)
			assert.ErrorIs(t, err, ErrMalformedRow)
		})
	}
}

func TestMapNegativePriceIsKept(t *testing.T) {
	row := fullRow()
	row.Price = s("-10")
	rec, err := NewMapper(true).Map(row)
	require.NoError(t, err)
	v, _ := rec.Value(models.MeasurePrice)
	assert.Equal(t, -10.0, v)
}

func TestStrictMapperRequiresEveryColumn(t *testing.T) {
	row := fullRow()
	row.SellBid = s("")
	_, err := NewMapper(true).Map(row)
	assert.ErrorIs(t, err, ErrMalformedRow)

	_, err = NewMapper(false).Map(row)
	assert.NoError(t, err)
}

func TestCanonicalize(t *testing.T) {
	row := fullRow()
	row.Date = s("2025-07-01")
	out, err := NewMapper(false).Canonicalize(row)
	require.NoError(t, err)
	assert.Equal(t, "01-07-2025", *out.Date)
	assert.Equal(t, "15", *out.Hour)
	assert.Equal(t, "57", *out.TimeBlock)
	assert.Equal(t, "12345.5", *out.PurchaseBid)

	row.Price = s("N/A")
	_, err = NewMapper(false).Canonicalize(row)
	assert.ErrorIs(t, err, ErrMalformedRow)
}

func TestColumnIndexMatchesLooseHeaders(t *testing.T) {
	header := []string{
		"\ufeffDate", " hour ", "Time  Block", "Purchase Bid (MW)", "Sell Bid (MW)",
		"MCV (MW)", "Final Scheduled Volume (MW)", "MCP (Rs/MWh) *", "Extra",
	}
	idx, err := ColumnIndex(header)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, idx)

	_, err = ColumnIndex(header[:5])
	assert.ErrorContains(t, err, "MCP (Rs/MWh)")
}

func TestRowFromRecord(t *testing.T) {
	idx := []int{7, 6, 5, 4, 3, 2, 1, 0}
	rec := []string{"4000", "7000", "7100", "300", "200", "3", "", "02-07-2025"}
	row := RowFromRecord(idx, rec)
	assert.Equal(t, "02-07-2025", *row.Date)
	assert.Nil(t, row.Hour)
	assert.Equal(t, "3", *row.TimeBlock)
	assert.Equal(t, "4000", *row.Price)
}

func TestRowFromFields(t *testing.T) {
	payload := []byte(`{"Date":"01-07-2025","Hour":14,"Time Block":null,"MCP (Rs/MWh)":4012.5,"Purchase Bid (MW)":"1,200","ignored":true}`)
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var fields map[string]any
	require.NoError(t, dec.Decode(&fields))

	row, err := RowFromFields(fields)
	require.NoError(t, err)
	assert.Equal(t, "14", *row.Hour)
	assert.Nil(t, row.TimeBlock)
	assert.Equal(t, "4012.5", *row.Price)

	rec, err := NewMapper(false).Map(row)
	require.NoError(t, err)
	v, _ := rec.Value(models.MeasurePurchaseBid)
	assert.Equal(t, 1200.0, v)

	_, err = RowFromFields(map[string]any{"Hour": []any{1}})
	assert.ErrorIs(t, err, ErrMalformedRow)
}
