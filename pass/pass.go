// Package pass runs one validation pass over a completed test run:
// extract live metadata, load the embedded cache, compare, and report.
//
// A pass is a value built fresh per run; there is no module-level state.
// The pass always runs to completion, and on any non-success outcome it
// emits exactly one top-level diagnostic plus one regenerated source
// offer.
package pass

import (
	"github.com/harnesskit/metacache/cachedoc"
	"github.com/harnesskit/metacache/compare"
	"github.com/harnesskit/metacache/diag"
	"github.com/harnesskit/metacache/extract"
	"github.com/harnesskit/metacache/metatree"
	"github.com/harnesskit/metacache/render"
)

// Result is the completion payload from the harness: the executed tests
// in order, plus the run status. Status is accepted for interface parity
// with the harness callback and not otherwise consulted.
type Result struct {
	Tests  []extract.Record `json:"tests"`
	Status map[string]any   `json:"status,omitempty"`
}

// Class is the classification of one pass.
type Class int

const (
	ClassSuccess Class = iota
	ClassCacheAbsent
	ClassCacheMalformed
	ClassOutOfSync
)

const outOfSyncMessage = "Cached metadata out of sync."

// Outcome is what a pass concluded. The current metadata map is retained
// so the source block can be re-rendered on demand.
type Outcome struct {
	Class   Class
	Message string

	current *metatree.Value
}

// Source renders the replacement cache block from the retained current
// metadata map. Rendering is deterministic, so repeated calls return
// identical bytes.
func (o Outcome) Source() string {
	return render.CacheBlock(o.current)
}

// Run executes one validation pass. Advisory diagnostics (contact
// format, duplicate test names) go to the sink as they are found; the
// classification then produces at most one top-level diagnostic and one
// source offer. A successful pass is silent.
func Run(res Result, doc []byte, sink diag.Sink) (Outcome, error) {
	current, err := extract.Collect(res.Tests, sink)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Class: ClassSuccess, current: current}

	state := cachedoc.Load(doc)
	switch state.Class {
	case cachedoc.ClassValid:
		if compare.Cache(current, state.Payload) {
			return out, nil
		}
		out.Class = ClassOutOfSync
		out.Message = outOfSyncMessage
		sink.ReportIssue(out.Message, diag.Error)
	case cachedoc.ClassAbsent:
		out.Class = ClassCacheAbsent
		out.Message = state.Message()
		sink.ReportIssue(out.Message, diag.Warning)
	case cachedoc.ClassNoPayload, cachedoc.ClassBadPayload:
		out.Class = ClassCacheMalformed
		out.Message = state.Message()
		sink.ReportIssue(out.Message, diag.Error)
	}

	sink.OfferRegeneratedSource(out.Source())
	return out, nil
}
