package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"
	"PowerPull/internal/services/snapshot"
	xhttp "PowerPull/pkg/http"
	applogger "PowerPull/pkg/logger"
)

// Loader opens the raw bytes of a flat-file export.
type Loader interface {
	Location() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileLoader reads the export from the local filesystem.
type FileLoader struct {
	Path string
}

func (f FileLoader) Location() string { return f.Path }

func (f FileLoader) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(f.Path)
}

// HTTPLoader downloads the export.
type HTTPLoader struct {
	URL    string
	Client *xhttp.Client
}

func (h HTTPLoader) Location() string { return h.URL }

func (h HTTPLoader) Open(ctx context.Context) (io.ReadCloser, error) {
	var body []byte
	err := h.Client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     h.URL,
		Headers: map[string]string{"Accept": "text/csv, text/plain, */*"},
	}, &body)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// FlatFileSource parses a delimited export with a header row. Data rows with
// an empty or malformed required column are dropped and counted.
type FlatFileSource struct {
	loader  Loader
	mapper  *snapshot.Mapper
	metrics domrepo.Metrics
	l       *applogger.Logger
}

var _ domrepo.Source = (*FlatFileSource)(nil)

func NewFlatFileSource(loader Loader, metrics domrepo.Metrics, l *applogger.Logger) *FlatFileSource {
	return &FlatFileSource{loader: loader, mapper: snapshot.NewMapper(true), metrics: metrics, l: l}
}

func (s *FlatFileSource) Name() string { return "flatfile" }

// Fetch returns every well-formed record of the export. Window filtering is
// left to the caller. Only an unreadable export is an error.
func (s *FlatFileSource) Fetch(ctx context.Context, b models.Boundary) ([]models.RawRecord, error) {
	start := time.Now()
	rows, err := s.ReadRows(ctx)
	if s.metrics != nil {
		s.metrics.RecordFetch(s.Name(), time.Since(start).Seconds(), err)
	}
	if err != nil {
		if s.l != nil {
			s.l.Error("flatfile load failed",
				applogger.String("location", s.loader.Location()),
				applogger.Error(err),
			)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domrepo.ErrSourceUnavailable, err)
	}

	recs, dropped := s.mapRows(rows)
	if s.metrics != nil {
		s.metrics.RecordRows(s.Name(), len(recs), dropped)
	}
	if dropped > 0 && s.l != nil {
		s.l.Warn("flatfile rows dropped",
			applogger.String("location", s.loader.Location()),
			applogger.Int("accepted", len(recs)),
			applogger.Int("dropped", dropped),
		)
	}
	return recs, nil
}

func (s *FlatFileSource) mapRows(rows []models.SnapshotRow) ([]models.RawRecord, int) {
	out := make([]models.RawRecord, 0, len(rows))
	dropped := 0
	for i, row := range rows {
		rec, err := s.mapper.Map(row)
		if err != nil {
			dropped++
			if s.l != nil {
				// header is line 1
				s.l.Debug("flatfile row dropped", applogger.Int("line", i+2), applogger.Error(err))
			}
			continue
		}
		out = append(out, rec)
	}
	return out, dropped
}

// ReadRows parses the export into native rows without mapping them.
func (s *FlatFileSource) ReadRows(ctx context.Context) ([]models.SnapshotRow, error) {
	rc, err := s.loader.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.loader.Location(), err)
	}
	defer rc.Close()
	return ParseDelimited(rc)
}

// ParseDelimited decodes a UTF-8 (optionally BOM prefixed) or UTF-16 export.
// The delimiter is taken from the header line: comma, semicolon or tab.
func ParseDelimited(r io.Reader) ([]models.SnapshotRow, error) {
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))

	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("empty export")
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	cr.Comma = detectDelimiter(header)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	// leading tabs would swallow empty fields of tab separated exports
	cr.TrimLeadingSpace = cr.Comma != '\t'

	cols, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	idx, err := snapshot.ColumnIndex(cols)
	if err != nil {
		return nil, err
	}

	var rows []models.SnapshotRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse row: %w", err)
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, snapshot.RowFromRecord(idx, rec))
	}
	return rows, nil
}

func detectDelimiter(header string) rune {
	best, count := ',', strings.Count(header, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(header, string(d)); n > count {
			best, count = d, n
		}
	}
	return best
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
