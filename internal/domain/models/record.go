package models

import "time"

// Measure names one measured quantity of a market snapshot.
type Measure string

const (
	MeasurePrice           Measure = "price"
	MeasurePurchaseBid     Measure = "purchase_bid"
	MeasureSellBid         Measure = "sell_bid"
	MeasureClearedVolume   Measure = "cleared_volume"
	MeasureScheduledVolume Measure = "scheduled_volume"
)

// AllMeasures lists every measure in display order.
var AllMeasures = []Measure{
	MeasurePrice,
	MeasurePurchaseBid,
	MeasureSellBid,
	MeasureClearedVolume,
	MeasureScheduledVolume,
}

// IsVolume reports whether m is expressed in MW and therefore cannot be negative.
func (m Measure) IsVolume() bool {
	return m != MeasurePrice
}

// Quantity groups measures that are charted together and computed as one pipeline.
type Quantity string

const (
	QuantityPrice   Quantity = "price"
	QuantityBids    Quantity = "bids"
	QuantityVolumes Quantity = "volumes"
)

// Measures returns the measures carried by q, or nil for an unknown quantity.
func (q Quantity) Measures() []Measure {
	switch q {
	case QuantityPrice:
		return []Measure{MeasurePrice}
	case QuantityBids:
		return []Measure{MeasurePurchaseBid, MeasureSellBid}
	case QuantityVolumes:
		return []Measure{MeasureClearedVolume, MeasureScheduledVolume}
	default:
		return nil
	}
}

// Valid reports whether q is a known quantity.
func (q Quantity) Valid() bool { return q.Measures() != nil }

// TimeSlot is the time-of-day encoding carried by a source row.
// Exactly one of HourSlot, BlockSlot or RangeSlot.
type TimeSlot interface {
	isTimeSlot()
}

// HourSlot is an hour-of-day index, 1..24.
type HourSlot struct{ Hour int }

// BlockSlot is a quarter-hour trading block index, 1..96.
type BlockSlot struct{ Block int }

// RangeSlot is free text such as "14:15 - 14:30".
type RangeSlot struct{ Text string }

func (HourSlot) isTimeSlot()  {}
func (BlockSlot) isTimeSlot() {}
func (RangeSlot) isTimeSlot() {}

// RawRecord is one mapped reading from a source. Nil measure pointers mean
// the value was unavailable; they are never treated as zero.
type RawRecord struct {
	Date            time.Time // civil date, UTC midnight
	Slot            TimeSlot  // nil when the row carried no usable time of day
	Price           *float64  // Rs/MWh
	PurchaseBid     *float64  // MW
	SellBid         *float64  // MW
	ScheduledVolume *float64  // MW
	ClearedVolume   *float64  // MW
}

// Value returns the reading for m and whether it was available.
func (r RawRecord) Value(m Measure) (float64, bool) {
	var p *float64
	switch m {
	case MeasurePrice:
		p = r.Price
	case MeasurePurchaseBid:
		p = r.PurchaseBid
	case MeasureSellBid:
		p = r.SellBid
	case MeasureClearedVolume:
		p = r.ClearedVolume
	case MeasureScheduledVolume:
		p = r.ScheduledVolume
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// SetValue stores v as the reading for m.
func (r *RawRecord) SetValue(m Measure, v float64) {
	switch m {
	case MeasurePrice:
		r.Price = &v
	case MeasurePurchaseBid:
		r.PurchaseBid = &v
	case MeasureSellBid:
		r.SellBid = &v
	case MeasureClearedVolume:
		r.ClearedVolume = &v
	case MeasureScheduledVolume:
		r.ScheduledVolume = &v
	}
}
