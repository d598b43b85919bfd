package usecase

import (
	"context"
	"errors"
	"testing"

	"PowerPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRowReader struct {
	rows []models.SnapshotRow
	err  error
}

func (r fakeRowReader) ReadRows(context.Context) ([]models.SnapshotRow, error) {
	return r.rows, r.err
}

func fullRow(date, hour, price string) models.SnapshotRow {
	return models.SnapshotRow{
		Date:            ptr(date),
		Hour:            ptr(hour),
		TimeBlock:       ptr("00:00 - 01:00"),
		PurchaseBid:     ptr("1000"),
		SellBid:         ptr("900"),
		ClearedVolume:   ptr("800"),
		ScheduledVolume: ptr("790"),
		Price:           ptr(price),
	}
}

func TestFlatFileImportWritesCanonicalRows(t *testing.T) {
	w := &fakeWriter{}
	m := newFakeMetrics()
	imp := NewFlatFileImport(fakeRowReader{rows: []models.SnapshotRow{
		fullRow("2025-07-01", "1", "3000.00"),
		fullRow("01/07/2025", "2", "3100"),
	}}, w, m, nil)

	res, err := imp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Read: 2, Written: 2}, res)
	require.Len(t, w.rows, 2)
	assert.Equal(t, "01-07-2025", *w.rows[0].Date)
	assert.Equal(t, "3000", *w.rows[0].Price)
	assert.Equal(t, "01-07-2025", *w.rows[1].Date)
	assert.Equal(t, 2, m.ingest["imported"])
}

func TestFlatFileImportAbortsOnMalformedRow(t *testing.T) {
	w := &fakeWriter{}
	bad := fullRow("01-07-2025", "2", "3100")
	bad.SellBid = nil
	imp := NewFlatFileImport(fakeRowReader{rows: []models.SnapshotRow{
		fullRow("01-07-2025", "1", "3000"),
		bad,
	}}, w, nil, nil)

	res, err := imp.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Equal(t, 2, res.Read)
	assert.Zero(t, res.Written)
	assert.Empty(t, w.rows)
}

func TestFlatFileImportPropagatesFailures(t *testing.T) {
	m := newFakeMetrics()
	_, err := NewFlatFileImport(fakeRowReader{err: errors.New("no such file")}, &fakeWriter{}, m, nil).Run(context.Background())
	assert.ErrorContains(t, err, "no such file")

	_, err = NewFlatFileImport(
		fakeRowReader{rows: []models.SnapshotRow{fullRow("01-07-2025", "1", "3000")}},
		&fakeWriter{err: errors.New("disk full")}, m, nil,
	).Run(context.Background())
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 2, m.errors["import"])
}
