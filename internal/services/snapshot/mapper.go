package snapshot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"PowerPull/internal/domain/models"
	"PowerPull/pkg/util"
)

// ErrMalformedRow marks a row that cannot become a RawRecord.
var ErrMalformedRow = errors.New("malformed snapshot row")

var measureColumns = []struct {
	measure models.Measure
	column  string
}{
	{models.MeasurePurchaseBid, models.ColumnPurchaseBid},
	{models.MeasureSellBid, models.ColumnSellBid},
	{models.MeasureClearedVolume, models.ColumnClearedVolume},
	{models.MeasureScheduledVolume, models.ColumnScheduledVolume},
	{models.MeasurePrice, models.ColumnPrice},
}

// Mapper converts native rows into raw records. A strict mapper also rejects
// rows with any empty column, as required for flat-file exports.
type Mapper struct {
	strict bool
}

func NewMapper(strict bool) *Mapper {
	return &Mapper{strict: strict}
}

// Map returns the record for row or an error wrapping ErrMalformedRow.
// The time slot comes from Hour when present, else from a numeric Time Block,
// else from Time Block range text.
func (m *Mapper) Map(row models.SnapshotRow) (models.RawRecord, error) {
	var rec models.RawRecord

	if m.strict {
		for i, cell := range row.Cells() {
			if *cell == nil || strings.TrimSpace(**cell) == "" {
				return rec, fmt.Errorf("%w: %s is empty", ErrMalformedRow, models.SnapshotColumns[i])
			}
		}
	}

	if row.Date == nil {
		return rec, fmt.Errorf("%w: missing date", ErrMalformedRow)
	}
	d, ok := util.ParseCivilDate(*row.Date)
	if !ok {
		return rec, fmt.Errorf("%w: unparsable date %q", ErrMalformedRow, *row.Date)
	}
	rec.Date = d

	slot, err := mapSlot(row.Hour, row.TimeBlock)
	if err != nil {
		return rec, err
	}
	rec.Slot = slot

	for _, mc := range measureColumns {
		cell := row.MeasureCell(mc.measure)
		if cell == nil || strings.TrimSpace(*cell) == "" {
			continue
		}
		v, ok := util.ParseNumber(*cell)
		if !ok {
			return rec, fmt.Errorf("%w: %s is not numeric: %q", ErrMalformedRow, mc.column, *cell)
		}
		if v < 0 && mc.measure.IsVolume() {
			return rec, fmt.Errorf("%w: negative %s", ErrMalformedRow, mc.column)
		}
		rec.SetValue(mc.measure, v)
	}
	return rec, nil
}

func mapSlot(hour, block *string) (models.TimeSlot, error) {
	if hour != nil && strings.TrimSpace(*hour) != "" {
		h, ok := util.ParseWholeNumber(*hour)
		if !ok || h < 1 || h > 24 {
			return nil, fmt.Errorf("%w: hour %q", ErrMalformedRow, *hour)
		}
		return models.HourSlot{Hour: h}, nil
	}
	if block == nil || strings.TrimSpace(*block) == "" {
		return nil, nil
	}
	text := strings.TrimSpace(*block)
	if strings.Contains(text, ":") {
		return models.RangeSlot{Text: text}, nil
	}
	b, ok := util.ParseWholeNumber(text)
	if !ok || b < 1 || b > 96 {
		return nil, fmt.Errorf("%w: time block %q", ErrMalformedRow, text)
	}
	return models.BlockSlot{Block: b}, nil
}

// Canonicalize validates row and returns it in the form written to the
// snapshot store: DD-MM-YYYY dates, plain numbers, trimmed time columns.
// Hour and Time Block are both kept so quarter-hour rows stay distinct.
func (m *Mapper) Canonicalize(row models.SnapshotRow) (models.SnapshotRow, error) {
	rec, err := m.Map(row)
	if err != nil {
		return models.SnapshotRow{}, err
	}
	str := func(s string) *string { return &s }
	trimmed := func(p *string) *string {
		if p == nil || strings.TrimSpace(*p) == "" {
			return nil
		}
		return str(strings.TrimSpace(*p))
	}
	num := func(ms models.Measure) *string {
		v, ok := rec.Value(ms)
		if !ok {
			return nil
		}
		return str(strconv.FormatFloat(v, 'f', -1, 64))
	}

	out := models.SnapshotRow{
		Date:            str(util.FormatMarketDate(rec.Date)),
		TimeBlock:       trimmed(row.TimeBlock),
		Price:           num(models.MeasurePrice),
		PurchaseBid:     num(models.MeasurePurchaseBid),
		SellBid:         num(models.MeasureSellBid),
		ClearedVolume:   num(models.MeasureClearedVolume),
		ScheduledVolume: num(models.MeasureScheduledVolume),
	}
	if h, ok := rec.Slot.(models.HourSlot); ok {
		out.Hour = str(strconv.Itoa(h.Hour))
	}
	return out, nil
}
