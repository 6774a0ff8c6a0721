package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeLayouts(t *testing.T) {
	want := time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2010-12-01", "12/1/2010", "12/1/2010 08:26", "2010-12-01 08:26:00"} {
		got, ok := ParseTime(s)
		if !ok {
			t.Fatalf("%q: expected ok", s)
		}
		if !TruncateDay(got).Equal(want) {
			t.Fatalf("%q: got %v", s, got)
		}
	}
	if _, ok := ParseTime("yesterday"); ok {
		t.Fatalf("expected failure")
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestFormatDay(t *testing.T) {
	if FormatDay(time.Time{}) != "" {
		t.Fatalf("zero time should be empty")
	}
	if got := FormatDay(time.Date(2024, 2, 5, 23, 0, 0, 0, time.UTC)); got != "2024-02-05" {
		t.Fatalf("got %s", got)
	}
}

func TestParsePrice(t *testing.T) {
	cases := map[string]float64{
		"45999":     45999,
		"₹45,999":   45999,
		"$1,299.50": 1299.5,
		" 12.5 ":    12.5,
	}
	for in, want := range cases {
		got, ok := ParsePrice(in)
		if !ok || got != want {
			t.Fatalf("%q: got %v %v", in, got, ok)
		}
	}
	for _, bad := range []string{"", "abc", "12abc"} {
		if _, ok := ParsePrice(bad); ok {
			t.Fatalf("%q: expected failure", bad)
		}
	}
}
