package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/util"
)

var _ domrepo.RowSource = (*CSVSource)(nil)

// header aliases, lowercased; the retail export uses Description/InvoiceDate/UnitPrice
var (
	dateColumns     = []string{"date", "invoicedate", "invoice_date", "timestamp"}
	nameColumns     = []string{"product", "product_name", "name", "description", "title"}
	categoryColumns = []string{"category", "category_name"}
	priceColumns    = []string{"price", "unitprice", "unit_price", "selling_price"}
)

// CSVSource reads price rows from a CSV file with a header line.
type CSVSource struct {
	path string
	l    *applogger.Logger
}

func NewCSVSource(path string, l *applogger.Logger) *CSVSource {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CSVSource{path: path, l: l}
}

func (s *CSVSource) Name() string { return "csv:" + s.path }

func (s *CSVSource) Load(ctx context.Context) ([]models.PriceRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return s.read(ctx, f)
}

func (s *CSVSource) read(ctx context.Context, r io.Reader) ([]models.PriceRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := indexHeader(header)
	if cols.date < 0 || cols.name < 0 || cols.price < 0 {
		return nil, fmt.Errorf("csv header %v: need date, product and price columns", header)
	}

	var (
		out     []models.PriceRow
		skipped int
		line    = 1
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, ok := cols.parse(rec)
		if !ok {
			skipped++
			continue
		}
		out = append(out, row)
	}
	if skipped > 0 {
		s.l.Warn("csv rows skipped", applogger.String("path", s.path), applogger.Int("skipped", skipped))
	}
	return out, nil
}

type columns struct {
	date, name, category, price int
}

func indexHeader(header []string) columns {
	find := func(aliases []string) int {
		for i, h := range header {
			h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
			for _, a := range aliases {
				if h == a {
					return i
				}
			}
		}
		return -1
	}
	return columns{
		date:     find(dateColumns),
		name:     find(nameColumns),
		category: find(categoryColumns),
		price:    find(priceColumns),
	}
}

func (c columns) parse(rec []string) (models.PriceRow, bool) {
	get := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	date, ok := util.ParseTime(get(c.date))
	if !ok {
		return models.PriceRow{}, false
	}
	price, ok := util.ParsePrice(get(c.price))
	if !ok {
		return models.PriceRow{}, false
	}
	name := get(c.name)
	if name == "" {
		return models.PriceRow{}, false
	}
	return models.PriceRow{Date: date, Name: name, Category: get(c.category), Price: price}, true
}
