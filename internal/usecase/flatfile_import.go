package usecase

import (
	"context"
	"fmt"
	"time"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"
	"PowerPull/internal/services/snapshot"
	applogger "PowerPull/pkg/logger"
)

// RowReader yields native rows from an export.
type RowReader interface {
	ReadRows(ctx context.Context) ([]models.SnapshotRow, error)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Read    int
	Written int
}

// FlatFileImport copies a flat-file export into the snapshot store so the
// remote source can serve it. A single bad row aborts the whole import.
type FlatFileImport struct {
	reader  RowReader
	writer  domrepo.SnapshotWriter
	mapper  *snapshot.Mapper
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewFlatFileImport(reader RowReader, writer domrepo.SnapshotWriter, metrics domrepo.Metrics, l *applogger.Logger) *FlatFileImport {
	if l == nil {
		l = applogger.Nop()
	}
	return &FlatFileImport{reader: reader, writer: writer, mapper: snapshot.NewMapper(true), metrics: metrics, l: l}
}

func (f *FlatFileImport) Run(ctx context.Context) (ImportResult, error) {
	start := time.Now()
	rows, err := f.reader.ReadRows(ctx)
	if err != nil {
		f.fail(err)
		return ImportResult{}, fmt.Errorf("read export: %w", err)
	}
	res := ImportResult{Read: len(rows)}

	out := make([]models.SnapshotRow, 0, len(rows))
	for i, row := range rows {
		c, err := f.mapper.Canonicalize(row)
		if err != nil {
			err = fmt.Errorf("line %d: %w", i+2, err)
			f.fail(err)
			return res, err
		}
		out = append(out, c)
	}
	if err := f.writer.InsertBatch(ctx, out); err != nil {
		f.fail(err)
		return res, fmt.Errorf("write rows: %w", err)
	}
	res.Written = len(out)
	if f.metrics != nil {
		f.metrics.RecordIngest("imported", res.Written)
	}
	f.l.Info("flatfile import finished",
		applogger.Int("read", res.Read),
		applogger.Int("written", res.Written),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

func (f *FlatFileImport) fail(err error) {
	if f.metrics != nil {
		f.metrics.RecordError("import")
	}
	f.l.Error("flatfile import failed", applogger.Error(err))
}
