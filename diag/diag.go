// Package diag is the reporting surface between the validation pass and
// its host environment. The core packages never print or log directly;
// they hand messages to a Sink, and each host supplies an implementation
// suited to where it runs.
package diag

// Severity classifies a diagnostic.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Sink receives diagnostics and, when the cache needs regenerating, the
// replacement source text.
type Sink interface {
	// ReportIssue delivers one human-readable diagnostic.
	ReportIssue(msg string, sev Severity)
	// OfferRegeneratedSource delivers the rendered replacement cache
	// block for the operator to apply.
	OfferRegeneratedSource(src string)
}

// Recorder is a Sink that retains everything it receives, for tests and
// for hosts that want to post-process diagnostics themselves.
type Recorder struct {
	Issues  []Issue
	Sources []string
}

// Issue is one recorded diagnostic.
type Issue struct {
	Message  string
	Severity Severity
}

func (r *Recorder) ReportIssue(msg string, sev Severity) {
	r.Issues = append(r.Issues, Issue{Message: msg, Severity: sev})
}

func (r *Recorder) OfferRegeneratedSource(src string) {
	r.Sources = append(r.Sources, src)
}
