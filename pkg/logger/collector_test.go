package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) entries() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorAggregatesRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "powerpull-logs",
		Publisher:      pub,
		Service:        "powerpull",
	})

	for i := 0; i < 3; i++ {
		l.Error("fetch failed", String("source", "remote"), Error(errors.New("timeout")))
	}
	l.Error("fetch failed", String("source", "flatfile"))
	l.Info("not collected")
	l.Warn("not collected either")
	l.RemoveCollector()

	got := pub.entries()
	require.Len(t, got, 2)
	assert.Equal(t, "powerpull-logs", pub.topic)
	counts := map[interface{}]int{}
	for _, e := range got {
		assert.Equal(t, "error", e.Level)
		assert.Equal(t, "powerpull", e.Service)
		assert.Contains(t, e.Caller, "logger/collector_test.go:")
		counts[e.Fields["source"]] = e.Count
	}
	assert.Equal(t, 3, counts["remote"])
	assert.Equal(t, 1, counts["flatfile"])
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 2,
		Publisher:      pub,
		Levels:         []string{"warn", "error"},
	})
	defer c.Close()

	assert.True(t, c.Accepts("warn"))
	assert.False(t, c.Accepts("info"))

	c.AddLog("warn", "a", nil, "x.go:1")
	c.AddLog("warn", "b", nil, "x.go:2")
	assert.Eventually(t, func() bool { return len(pub.entries()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestEntryKeyIgnoresFieldOrder(t *testing.T) {
	a := entryKey("error", "m", map[string]interface{}{"a": 1, "b": "x"}, "c")
	b := entryKey("error", "m", map[string]interface{}{"b": "x", "a": 1}, "c")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, entryKey("error", "m", map[string]interface{}{"a": 2, "b": "x"}, "c"))
}
