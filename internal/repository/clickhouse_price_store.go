package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	pkgch "PricePulse/pkg/clickhouse"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/util"
)

var (
	_ domrepo.RowSource = (*CHPriceStore)(nil)
	_ domrepo.RowSink   = (*CHPriceStore)(nil)
)

// CHPriceStore reads and appends price history in ClickHouse.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHPriceStore qualifies a bare table name with the client's database.
func NewCHPriceStore(ch *pkgch.Client, table string, l *applogger.Logger) (*CHPriceStore, error) {
	if !strings.Contains(table, ".") && ch.Database() != "" {
		table = ch.Database() + "." + table
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHPriceStore{db: ch.DB(), table: table, l: l}, nil
}

func (s *CHPriceStore) Name() string { return "clickhouse:" + s.table }

func (s *CHPriceStore) Load(ctx context.Context) ([]models.PriceRow, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, product, category, price
        FROM %s FINAL
        ORDER BY date ASC, product ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.l.Error("clickhouse load query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("load prices: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceRow, 0, 1024)
	for rows.Next() {
		var r models.PriceRow
		if err := rows.Scan(&r.Date, &r.Name, &r.Category, &r.Price); err != nil {
			s.l.Error("clickhouse load scan error", applogger.String("table", s.table), applogger.Error(err))
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Info("clickhouse load ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreBatch inserts rows with multi-row VALUES statements. Duplicate
// (product, date) pairs collapse on merge.
func (s *CHPriceStore) StoreBatch(ctx context.Context, rows []models.PriceRow) error {
	const chunkSize = 2000
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, r := range rows[start:end] {
			if r.Name == "" || r.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, util.TruncateDay(r.Date), r.Name, r.Category, r.Price)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (date, product, category, price) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert prices: %w", err)
		}
	}
	return nil
}
