package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"
	"PowerPull/internal/services/snapshot"
	applogger "PowerPull/pkg/logger"
)

// RowSink accepts canonical rows for asynchronous persistence.
type RowSink interface {
	Add(rows ...models.SnapshotRow) error
}

// SnapshotIngestHandler consumes snapshot rows published as JSON, either a
// single object or an array of objects keyed by column name.
type SnapshotIngestHandler struct {
	topic   string
	sink    RowSink
	mapper  *snapshot.Mapper
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewSnapshotIngestHandler(topic string, sink RowSink, metrics domrepo.Metrics, l *applogger.Logger) *SnapshotIngestHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &SnapshotIngestHandler{
		topic:   topic,
		sink:    sink,
		mapper:  snapshot.NewMapper(false),
		metrics: metrics,
		l:       l,
	}
}

func (h *SnapshotIngestHandler) Topic() string { return h.topic }

// Handle never fails for bad payloads, which are logged and skipped.
// It fails only when the sink rejects the rows so the consumer retries.
func (h *SnapshotIngestHandler) Handle(ctx context.Context, payload []byte) error {
	objects, err := decodeObjects(payload)
	if err != nil {
		h.l.Warn("ingest payload rejected", applogger.String("topic", h.topic), applogger.Error(err))
		h.record("dropped", 1)
		return nil
	}

	rows := make([]models.SnapshotRow, 0, len(objects))
	dropped := 0
	for _, obj := range objects {
		row, err := snapshot.RowFromFields(obj)
		if err == nil {
			row, err = h.mapper.Canonicalize(row)
		}
		if err != nil {
			dropped++
			h.l.Debug("ingest row dropped", applogger.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	if dropped > 0 {
		h.record("dropped", dropped)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := h.sink.Add(rows...); err != nil {
		return fmt.Errorf("queue %d rows: %w", len(rows), err)
	}
	h.record("accepted", len(rows))
	return nil
}

func (h *SnapshotIngestHandler) record(result string, n int) {
	if h.metrics != nil {
		h.metrics.RecordIngest(result, n)
	}
}

func decodeObjects(payload []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if trimmed[0] == '[' {
		var objs []map[string]any
		if err := dec.Decode(&objs); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return objs, nil
	}
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return []map[string]any{obj}, nil
}
