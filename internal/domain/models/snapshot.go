package models

// Column names of the market snapshot relation and its flat-file export.
const (
	ColumnDate            = "Date"
	ColumnHour            = "Hour"
	ColumnTimeBlock       = "Time Block"
	ColumnPurchaseBid     = "Purchase Bid (MW)"
	ColumnSellBid         = "Sell Bid (MW)"
	ColumnClearedVolume   = "MCV (MW)"
	ColumnScheduledVolume = "Final Scheduled Volume (MW)"
	ColumnPrice           = "MCP (Rs/MWh)"
)

// SnapshotColumns lists the snapshot columns in table order.
var SnapshotColumns = []string{
	ColumnDate,
	ColumnHour,
	ColumnTimeBlock,
	ColumnPurchaseBid,
	ColumnSellBid,
	ColumnClearedVolume,
	ColumnScheduledVolume,
	ColumnPrice,
}

// SnapshotRow is a row in its native column set, every cell kept as text.
// A nil cell is SQL NULL or a missing field.
type SnapshotRow struct {
	Date            *string
	Hour            *string
	TimeBlock       *string
	PurchaseBid     *string
	SellBid         *string
	ClearedVolume   *string
	ScheduledVolume *string
	Price           *string
}

// Cells returns pointers to the row cells in SnapshotColumns order.
func (r *SnapshotRow) Cells() []**string {
	return []**string{
		&r.Date,
		&r.Hour,
		&r.TimeBlock,
		&r.PurchaseBid,
		&r.SellBid,
		&r.ClearedVolume,
		&r.ScheduledVolume,
		&r.Price,
	}
}

// MeasureCell returns the cell holding m.
func (r SnapshotRow) MeasureCell(m Measure) *string {
	switch m {
	case MeasurePrice:
		return r.Price
	case MeasurePurchaseBid:
		return r.PurchaseBid
	case MeasureSellBid:
		return r.SellBid
	case MeasureClearedVolume:
		return r.ClearedVolume
	case MeasureScheduledVolume:
		return r.ScheduledVolume
	default:
		return nil
	}
}
