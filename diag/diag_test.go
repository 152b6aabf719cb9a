package diag

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "error", Error.String())
}

func TestRecorderRetainsEverything(t *testing.T) {
	var r Recorder
	r.ReportIssue("first", Warning)
	r.ReportIssue("second", Error)
	r.OfferRegeneratedSource("<script>...</script>")

	require.Len(t, r.Issues, 2)
	assert.Equal(t, Issue{Message: "first", Severity: Warning}, r.Issues[0])
	assert.Equal(t, Issue{Message: "second", Severity: Error}, r.Issues[1])
	require.Len(t, r.Sources, 1)
}

func TestTermSinkOutput(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	sink := NewTermSink(&buf)
	sink.ReportIssue("cache drifted", Error)
	sink.ReportIssue("cache missing", Warning)
	sink.OfferRegeneratedSource("BLOCK")

	out := buf.String()
	assert.Contains(t, out, "error: cache drifted")
	assert.Contains(t, out, "warning: cache missing")
	assert.Contains(t, out, "replacement cache block:\nBLOCK\n")
}

func TestLogSinkSeverityMapping(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := NewLogSink(zap.New(core))

	sink.ReportIssue("bad cache", Error)
	sink.ReportIssue("no cache", Warning)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, "bad cache", entries[0].ContextMap()["message"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}

func TestLogSinkNilLogger(t *testing.T) {
	sink := NewLogSink(nil)
	assert.NotPanics(t, func() {
		sink.ReportIssue("msg", Warning)
		sink.OfferRegeneratedSource("src")
	})
}
