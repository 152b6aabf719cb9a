package diag

import "go.uber.org/zap"

// LogSink forwards diagnostics to a structured logger, for hosts that
// run the pass inside a larger service rather than on a terminal.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a LogSink over the given logger. A nil logger is
// replaced with a no-op logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) ReportIssue(msg string, sev Severity) {
	if sev == Error {
		s.logger.Error("metadata cache diagnostic", zap.String("message", msg))
		return
	}
	s.logger.Warn("metadata cache diagnostic", zap.String("message", msg))
}

func (s *LogSink) OfferRegeneratedSource(src string) {
	s.logger.Info("regenerated cache source",
		zap.Int("bytes", len(src)),
		zap.String("source", src))
}
