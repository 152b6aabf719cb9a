package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// TermSink writes diagnostics to a terminal, warnings in yellow and
// errors in red. Offered source is printed unstyled so it can be copied
// straight into the test document.
type TermSink struct {
	out     io.Writer
	warning *color.Color
	failure *color.Color
}

// NewTermSink returns a TermSink writing to out. Styling follows the
// global color settings (disabled automatically on non-TTY output).
func NewTermSink(out io.Writer) *TermSink {
	return &TermSink{
		out:     out,
		warning: color.New(color.FgYellow, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
	}
}

func (t *TermSink) ReportIssue(msg string, sev Severity) {
	style := t.warning
	if sev == Error {
		style = t.failure
	}
	fmt.Fprintf(t.out, "%s %s\n", style.Sprintf("%s:", sev), msg)
}

func (t *TermSink) OfferRegeneratedSource(src string) {
	fmt.Fprintf(t.out, "replacement cache block:\n%s\n", src)
}
