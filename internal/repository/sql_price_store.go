package repository

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	_ domrepo.RowSource = (*SQLPriceStore)(nil)
	_ domrepo.RowSink   = (*SQLPriceStore)(nil)
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// OpenSQL opens and pings a sqlite or postgres pool.
func OpenSQL(ctx context.Context, driverName, dsn string, maxOpen int) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql ping: %w", err)
	}
	return db, nil
}

// SQLPriceStore reads and writes the price table through sqlx. The same
// statements run on sqlite and postgres; placeholders are rebound per driver.
type SQLPriceStore struct {
	db    *sqlx.DB
	table string
	l     *applogger.Logger
}

func NewSQLPriceStore(db *sqlx.DB, table string, l *applogger.Logger) (*SQLPriceStore, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &SQLPriceStore{db: db, table: table, l: l}, nil
}

func (s *SQLPriceStore) Name() string { return "sql:" + s.db.DriverName() }

// InitSchema creates the price table when missing.
func (s *SQLPriceStore) InitSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    date     DATE NOT NULL,
    product  TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    price    DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (product, date)
)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init price schema: %w", err)
	}
	return nil
}

type sqlPriceRow struct {
	Date     dayValue `db:"date"`
	Product  string   `db:"product"`
	Category string   `db:"category"`
	Price    float64  `db:"price"`
}

func (s *SQLPriceStore) Load(ctx context.Context) ([]models.PriceRow, error) {
	start := time.Now()
	q := fmt.Sprintf("SELECT date, product, category, price FROM %s ORDER BY date, product", s.table)
	var rows []sqlPriceRow
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		s.l.Error("sql load query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("load prices: %w", err)
	}
	out := make([]models.PriceRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.PriceRow{
			Date:     time.Time(r.Date),
			Name:     r.Product,
			Category: r.Category,
			Price:    r.Price,
		})
	}
	s.l.Debug("sql load ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreBatch upserts rows keyed by (product, day) in one transaction.
func (s *SQLPriceStore) StoreBatch(ctx context.Context, rows []models.PriceRow) error {
	if len(rows) == 0 {
		return nil
	}
	q := fmt.Sprintf(`INSERT INTO %s (date, product, category, price)
VALUES (:date, :product, :category, :price)
ON CONFLICT (product, date) DO UPDATE SET price = excluded.price, category = excluded.category`, s.table)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareNamedContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		arg := sqlPriceRow{Date: dayValue(r.Date), Product: r.Name, Category: r.Category, Price: r.Price}
		if _, err := stmt.ExecContext(ctx, arg); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %q: %w", r.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// dayValue stores a day as YYYY-MM-DD and accepts whatever the driver hands
// back on read (time.Time from postgres, text from sqlite).
type dayValue time.Time

func (d dayValue) Value() (driver.Value, error) {
	return util.FormatDay(time.Time(d)), nil
}

func (d *dayValue) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = dayValue(v.UTC())
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		return fmt.Errorf("null date")
	default:
		return fmt.Errorf("unsupported date type %T", src)
	}
}

func (d *dayValue) parse(s string) error {
	t, ok := util.ParseTime(s)
	if !ok {
		if len(s) >= 10 {
			t, ok = util.ParseTime(s[:10])
		}
		if !ok {
			return fmt.Errorf("bad date %q", s)
		}
	}
	*d = dayValue(t)
	return nil
}
