package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("report created", "report_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "report created", line["msg"])
	assert.Equal(t, "abc", line["report_id"])
	assert.Equal(t, "issue-report-service", line["service"])
}

func TestNewLogger_TextDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "DEBUG", "text")

	logger.Debug("cache miss", "key", "rev:1,2")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "msg=\"cache miss\"")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestMetricsRegisterWithoutConflicts(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, func() error {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return err
			}
		}
		return nil
	}())

	m.ReportsCreated.Inc()
	m.StatusUpdates.WithLabelValues("resolved").Inc()
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReportsCreated), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StatusUpdates.WithLabelValues("resolved")), 0)
}
