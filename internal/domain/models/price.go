package models

import "time"

// SeriesKind tells whether a series belongs to a single product or an aggregated category.
type SeriesKind string

const (
	SeriesProduct  SeriesKind = "product"
	SeriesCategory SeriesKind = "category"
)

// Observation is one daily price point.
type Observation struct {
	Date  time.Time
	Price float64
}

// Series is an ordered (ascending by date) list of observations with at most one point per day.
type Series struct {
	Key          string
	Kind         SeriesKind
	Category     string
	Observations []Observation
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Observations) }

// Empty reports whether the series has no observations.
func (s Series) Empty() bool { return len(s.Observations) == 0 }

// Origin returns the earliest date of the series (day zero).
func (s Series) Origin() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[0].Date
}

// Last returns the latest observation.
func (s Series) Last() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}

// ElapsedDay returns the whole days between the series origin and t.
func (s Series) ElapsedDay(t time.Time) int {
	return int(t.Sub(s.Origin()).Hours() / 24)
}

// LastDay returns the elapsed day of the latest observation.
func (s Series) LastDay() int {
	last, ok := s.Last()
	if !ok {
		return 0
	}
	return s.ElapsedDay(last.Date)
}

// Prices returns the observed prices in date order.
func (s Series) Prices() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Price
	}
	return out
}

// Mean returns the arithmetic mean price, or 0 for an empty series.
func (s Series) Mean() float64 {
	if len(s.Observations) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range s.Observations {
		sum += o.Price
	}
	return sum / float64(len(s.Observations))
}

// PriceRow is a raw ingestion record before it is grouped into series.
type PriceRow struct {
	Date     time.Time `json:"date" db:"date"`
	Name     string    `json:"product" db:"product"`
	Category string    `json:"category,omitempty" db:"category"`
	Price    float64   `json:"price" db:"price"`
}

// ProductInfo describes a stored product series for listing and similarity search.
type ProductInfo struct {
	Key       string
	Category  string
	Keywords  []string
	Points    int
	MeanPrice float64
	LastPrice float64
	LastDate  time.Time
}
