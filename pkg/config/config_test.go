package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
environment: test
store:
  source: csv
  csv_path: data/prices.csv
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, []int{7, 15, 30}, c.Forecast.Horizons)
	assert.Equal(t, 0.05, c.Forecast.Threshold)
	assert.Equal(t, 0.85, c.Forecast.SimilarDiscount)
	assert.Equal(t, 0.7, c.Forecast.CategoryDiscount)
	assert.Equal(t, 0.2, c.Forecast.MinOverlap)
	assert.Equal(t, 30*time.Second, c.Cache.TTL)
	assert.Equal(t, "price_history", c.Store.Table)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing env":        "store: {source: none}",
		"bad source":         "environment: x\nstore: {source: ftp}",
		"csv without path":   "environment: x\nstore: {source: csv}",
		"sql bad driver":     "environment: x\nstore: {source: sql}\nsql: {driver: mysql, dsn: x}",
		"descending horizon": "environment: x\nstore: {source: none}\nforecast: {horizons: [30, 7]}",
		"threshold too big":  "environment: x\nstore: {source: none}\nforecast: {threshold: 1.5}",
		"kafka no brokers":   "environment: x\nstore: {source: none}\nkafka: {enabled: true}",
		"collector no kafka": "environment: x\nstore: {source: none}\nlogging: {collector: {enabled: true, topic: logs}}",
	}
	for name, y := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(y))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	t.Setenv("PRICEPULSE_PORT", "9090")
	t.Setenv("PRICEPULSE_HORIZONS", "7, 15, 30, 60")
	t.Setenv("PRICEPULSE_THRESHOLD", "0.1")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, []int{7, 15, 30, 60}, c.Forecast.Horizons)
	assert.Equal(t, 0.1, c.Forecast.Threshold)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestLoadWithEnvBadThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))
	t.Setenv("PRICEPULSE_THRESHOLD", "abc")

	_, err := LoadWithEnv(path)
	assert.Error(t, err)
}

func TestParseHorizons(t *testing.T) {
	hs, err := ParseHorizons("7,,15 ,30")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 15, 30}, hs)

	_, err = ParseHorizons("7,x")
	assert.Error(t, err)
}
