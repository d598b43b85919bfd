package logger

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Publisher ships a batch of aggregated entries, e.g. to a Kafka topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // distinct entries that force an early flush
	Topic          string
	Publisher      Publisher
	// Levels to aggregate; defaults to error only.
	Levels []string
	// Service tags every shipped entry.
	Service string
}

// AggregatedLogEntry counts identical log lines between two flushes.
type AggregatedLogEntry struct {
	Service   string                 `json:"service,omitempty"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector folds repeated log lines into counted entries and publishes
// them in batches.
type LogCollector struct {
	config  CollectionConfig
	levels  map[string]bool
	entries map[string]*AggregatedLogEntry
	mu      sync.Mutex
	stop    chan struct{}
	loop    sync.WaitGroup
	sending sync.WaitGroup
	// fallback reports publish failures without re-entering the collector
	fallback zerolog.Logger
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if len(cfg.Levels) == 0 {
		cfg.Levels = []string{"error"}
	}
	c := &LogCollector{
		config:   cfg,
		levels:   make(map[string]bool, len(cfg.Levels)),
		entries:  make(map[string]*AggregatedLogEntry),
		stop:     make(chan struct{}),
		fallback: zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
	for _, lv := range cfg.Levels {
		c.levels[strings.ToLower(lv)] = true
	}
	c.loop.Add(1)
	go c.run()
	return c
}

// Accepts reports whether entries of level are aggregated.
func (c *LogCollector) Accepts(level string) bool {
	return c.levels[level]
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
		return
	}
	c.entries[key] = &AggregatedLogEntry{
		Service:   c.config.Service,
		Level:     level,
		Message:   message,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	if len(c.entries) >= c.config.CountThreshold {
		c.flushLocked()
	}
}

// Flush publishes pending entries now.
func (c *LogCollector) Flush() {
	c.mu.Lock()
	c.flushLocked()
	c.mu.Unlock()
}

// Close stops the flush loop, publishes what is left and waits for
// in-flight publishes.
func (c *LogCollector) Close() {
	close(c.stop)
	c.loop.Wait()
	c.Flush()
	c.sending.Wait()
}

func (c *LogCollector) run() {
	defer c.loop.Done()
	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Flush()
		case <-c.stop:
			return
		}
	}
}

func (c *LogCollector) flushLocked() {
	if len(c.entries) == 0 || c.config.Publisher == nil {
		return
	}
	batch := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		batch = append(batch, *e)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].FirstSeen.Before(batch[j].FirstSeen) })
	c.entries = make(map[string]*AggregatedLogEntry)

	c.sending.Add(1)
	go func() {
		defer c.sending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
			c.fallback.Error().Err(err).Int("entries", len(batch)).Msg("publish aggregated logs failed")
		}
	}()
}

// entryKey identifies a log line by level, message, caller and field values.
func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(level)
	b.WriteByte('|')
	b.WriteString(message)
	b.WriteByte('|')
	b.WriteString(caller)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fmtValue(fields[k]))
	}
	return b.String()
}
