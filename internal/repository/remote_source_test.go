package repository

import (
	"context"
	"errors"
	"testing"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	rows []models.SnapshotRow
	err  error
}

func (f fakeReader) Query(context.Context, models.Boundary) ([]models.SnapshotRow, error) {
	return f.rows, f.err
}

type rowCounter struct {
	accepted, dropped int
	fetchErrs         int
}

func (c *rowCounter) RecordFetch(_ string, _ float64, err error) {
	if err != nil {
		c.fetchErrs++
	}
}
func (c *rowCounter) RecordRows(_ string, accepted, dropped int) {
	c.accepted += accepted
	c.dropped += dropped
}
func (c *rowCounter) RecordSynthesized(string, int) {}
func (c *rowCounter) RecordSuperseded()             {}
func (c *rowCounter) RecordIngest(string, int)      {}
func (c *rowCounter) RecordError(string)            {}

func TestRemoteSourceDropsMalformedRows(t *testing.T) {
	m := &rowCounter{}
	src := NewRemoteSource(fakeReader{rows: []models.SnapshotRow{
		snap("01-07-2025", "1", "", "3000"),
		snap("31-02-2025", "1", "", "3000"),
		snap("01-07-2025", "2", "", "N/A"),
		snap("01-07-2025", "", "00:15 - 00:30", "3100"),
	}}, m, nil)
	assert.Equal(t, "remote", src.Name())

	recs, err := src.Fetch(context.Background(), models.Boundary{Open: true})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.RangeSlot{Text: "00:15 - 00:30"}, recs[1].Slot)
	assert.Equal(t, 2, m.accepted)
	assert.Equal(t, 2, m.dropped)
}

func TestRemoteSourceWrapsStoreErrors(t *testing.T) {
	m := &rowCounter{}
	src := NewRemoteSource(fakeReader{err: errors.New("connection reset")}, m, nil)
	_, err := src.Fetch(context.Background(), models.Boundary{Open: true})
	assert.ErrorIs(t, err, domrepo.ErrSourceUnavailable)
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 1, m.fetchErrs)

	src = NewRemoteSource(fakeReader{err: context.Canceled}, nil, nil)
	_, err = src.Fetch(context.Background(), models.Boundary{Open: true})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domrepo.ErrSourceUnavailable)
}
