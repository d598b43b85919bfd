package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"
	applogger "PowerPull/pkg/logger"
	"PowerPull/pkg/util"
)

// Dialect holds the SQL that differs between snapshot store engines.
// Dates are stored as DD-MM-YYYY text, so every engine needs an expression
// that turns the Date column into a sortable ISO date.
type Dialect struct {
	Name       string
	DateExpr   string
	DateParam  string
	HourExpr   string
	Final      string
	InsertVerb string
	Schema     func(table string) []string
}

var ClickHouseDialect = Dialect{
	Name:       "clickhouse",
	DateExpr:   `toDate(parseDateTime("Date", '%d-%m-%Y'))`,
	DateParam:  "toDate(?)",
	HourExpr:   `toInt32OrZero("Hour")`,
	Final:      " FINAL",
	InsertVerb: "INSERT INTO",
	Schema: func(table string) []string {
		return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			"Date" String,
			"Hour" String DEFAULT '',
			"Time Block" String DEFAULT '',
			"Purchase Bid (MW)" Nullable(Float64),
			"Sell Bid (MW)" Nullable(Float64),
			"MCV (MW)" Nullable(Float64),
			"Final Scheduled Volume (MW)" Nullable(Float64),
			"MCP (Rs/MWh)" Nullable(Float64),
			updated_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY ("Date", "Hour", "Time Block")`, table)}
	},
}

var SQLiteDialect = Dialect{
	Name:       "sqlite",
	DateExpr:   `substr("Date",7,4)||'-'||substr("Date",4,2)||'-'||substr("Date",1,2)`,
	DateParam:  "?",
	HourExpr:   `CAST("Hour" AS INTEGER)`,
	InsertVerb: "INSERT OR REPLACE INTO",
	Schema: func(table string) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				"Date" TEXT NOT NULL,
				"Hour" TEXT NOT NULL DEFAULT '',
				"Time Block" TEXT NOT NULL DEFAULT '',
				"Purchase Bid (MW)" REAL,
				"Sell Bid (MW)" REAL,
				"MCV (MW)" REAL,
				"Final Scheduled Volume (MW)" REAL,
				"MCP (Rs/MWh)" REAL,
				updated_at INTEGER NOT NULL DEFAULT 0,
				UNIQUE ("Date", "Hour", "Time Block")
			)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_date ON %s ("Date")`, strings.ReplaceAll(table, ".", "_"), table),
		}
	},
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case ClickHouseDialect.Name:
		return ClickHouseDialect, nil
	case SQLiteDialect.Name:
		return SQLiteDialect, nil
	default:
		return Dialect{}, fmt.Errorf("unknown store driver %q", name)
	}
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

const insertChunk = 500

// SQLSnapshotStore keeps market snapshot rows in a SQL table.
type SQLSnapshotStore struct {
	db      *sql.DB
	table   string
	dialect Dialect
	l       *applogger.Logger
}

var _ domrepo.SnapshotStore = (*SQLSnapshotStore)(nil)

func NewSQLSnapshotStore(db *sql.DB, table string, dialect Dialect) (*SQLSnapshotStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQLSnapshotStore{db: db, table: table, dialect: dialect}, nil
}

// SetLogger injects a structured logger.
func (s *SQLSnapshotStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *SQLSnapshotStore) Init(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Query returns rows whose Date falls in b, ordered by date then time slot.
// An open boundary returns the whole table.
func (s *SQLSnapshotStore) Query(ctx context.Context, b models.Boundary) ([]models.SnapshotRow, error) {
	if b.Empty {
		return []models.SnapshotRow{}, nil
	}
	start := time.Now()

	q := fmt.Sprintf(`SELECT "Date", "Hour", "Time Block", "Purchase Bid (MW)", "Sell Bid (MW)",
		"MCV (MW)", "Final Scheduled Volume (MW)", "MCP (Rs/MWh)"
		FROM %s%s`, s.table, s.dialect.Final)
	var args []any
	if !b.Open {
		q += fmt.Sprintf(" WHERE %s >= %s AND %s <= %s",
			s.dialect.DateExpr, s.dialect.DateParam, s.dialect.DateExpr, s.dialect.DateParam)
		args = append(args, util.FormatISODate(b.From), util.FormatISODate(b.To))
	}
	q += fmt.Sprintf(` ORDER BY %s ASC, %s ASC, length("Time Block") ASC, "Time Block" ASC`,
		s.dialect.DateExpr, s.dialect.HourExpr)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logError("snapshot query error", b, err)
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]models.SnapshotRow, 0, 256)
	for rows.Next() {
		var (
			date, hour, block sql.NullString
			nums              [5]sql.NullFloat64
		)
		if err := rows.Scan(&date, &hour, &block, &nums[0], &nums[1], &nums[2], &nums[3], &nums[4]); err != nil {
			s.logError("snapshot scan error", b, err)
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, models.SnapshotRow{
			Date:            text(date),
			Hour:            text(hour),
			TimeBlock:       text(block),
			PurchaseBid:     number(nums[0]),
			SellBid:         number(nums[1]),
			ClearedVolume:   number(nums[2]),
			ScheduledVolume: number(nums[3]),
			Price:           number(nums[4]),
		})
	}
	if err := rows.Err(); err != nil {
		s.logError("snapshot rows error", b, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("snapshot query ok",
			applogger.String("driver", s.dialect.Name),
			applogger.String("table", s.table),
			applogger.String("lookback", string(b.Lookback)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// InsertBatch upserts rows keyed by (Date, Hour, Time Block).
func (s *SQLSnapshotStore) InsertBatch(ctx context.Context, rows []models.SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}
	const cols = `("Date", "Hour", "Time Block", "Purchase Bid (MW)", "Sell Bid (MW)", "MCV (MW)", "Final Scheduled Volume (MW)", "MCP (Rs/MWh)", updated_at)`
	stamp := time.Now()

	for begin := 0; begin < len(rows); begin += insertChunk {
		end := min(begin+insertChunk, len(rows))
		values := make([]string, 0, end-begin)
		args := make([]any, 0, (end-begin)*9)
		for _, r := range rows[begin:end] {
			if r.Date == nil {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				*r.Date, deref(r.Hour), deref(r.TimeBlock),
				numeric(r.PurchaseBid), numeric(r.SellBid), numeric(r.ClearedVolume),
				numeric(r.ScheduledVolume), numeric(r.Price),
				s.updatedAt(stamp),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("%s %s %s VALUES %s", s.dialect.InsertVerb, s.table, cols, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("snapshot insert error",
					applogger.String("driver", s.dialect.Name),
					applogger.String("table", s.table),
					applogger.Int("rows", len(values)),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("insert snapshots: %w", err)
		}
	}
	return nil
}

func (s *SQLSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to its opener.
func (s *SQLSnapshotStore) Close() error {
	return nil
}

func (s *SQLSnapshotStore) updatedAt(t time.Time) any {
	if s.dialect.Name == SQLiteDialect.Name {
		return t.UnixMilli()
	}
	return t
}

func (s *SQLSnapshotStore) logError(msg string, b models.Boundary, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("driver", s.dialect.Name),
		applogger.String("table", s.table),
		applogger.String("from", util.FormatISODate(b.From)),
		applogger.String("to", util.FormatISODate(b.To)),
		applogger.Error(err),
	)
}

func text(v sql.NullString) *string {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	s := v.String
	return &s
}

func number(v sql.NullFloat64) *string {
	if !v.Valid {
		return nil
	}
	s := strconv.FormatFloat(v.Float64, 'f', -1, 64)
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func numeric(p *string) any {
	if p == nil {
		return nil
	}
	v, ok := util.ParseNumber(*p)
	if !ok {
		return nil
	}
	return v
}
