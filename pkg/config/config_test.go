package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	c.Pipeline.DailySource = "remote"
	if err := c.Validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
	if c.Pipeline.Timezone != "Asia/Kolkata" || c.Pipeline.GapFill != "partial" {
		t.Fatalf("unexpected pipeline defaults: %+v", c.Pipeline)
	}
	if c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("read timeout = %v", c.Server.ReadTimeout)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
store:
  driver: clickhouse
clickhouse:
  host: ch
flatfile:
  path: export.csv
pipeline:
  gap_fill: "off"
  baselines:
    purchase_bid: 9000
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Store.Driver != "clickhouse" || c.ClickHouse.Port != 9000 {
		t.Fatalf("store = %+v, clickhouse port = %d", c.Store, c.ClickHouse.Port)
	}
	if c.Pipeline.GapFill != "off" || c.Pipeline.Baselines["purchase_bid"] != 9000 {
		t.Fatalf("pipeline = %+v", c.Pipeline)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "store: {driver: mysql}"},
		{"clickhouse without host", "store: {driver: clickhouse}\nflatfile: {path: a.csv}"},
		{"flatfile source without location", "pipeline: {daily_source: flatfile}"},
		{"bad gap fill", "flatfile: {path: a.csv}\npipeline: {gap_fill: sometimes}"},
		{"bad jitter", "flatfile: {path: a.csv}\npipeline: {jitter: 1.5}"},
		{"bad timezone", "flatfile: {path: a.csv}\npipeline: {timezone: Mars/Olympus}"},
		{"kafka without brokers", "flatfile: {path: a.csv}\nkafka: {enabled: true}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, _ := Default()
	env := map[string]string{
		"POWERPULL_PORT": "9090",
		"KAFKA_BROKERS":  "a:9092,b:9092",
		"REDIS_HOST":     "cache",
	}
	c.ApplyEnv(func(k string) string { return env[k] })
	if c.Server.Port != 9090 {
		t.Fatalf("port = %d", c.Server.Port)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %+v", c.Kafka)
	}
	if !c.Redis.Enabled || c.Redis.Host != "cache" {
		t.Fatalf("redis = %+v", c.Redis)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	path := filepath.Join("..", "..", "config", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("config/config.yaml not present")
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
}
