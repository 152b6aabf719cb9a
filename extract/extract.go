// Package extract builds the current metadata map from the test records
// of a completed run.
//
// Only the fixed field allowlist is copied out of a test's property bag.
// A field the test did not declare is omitted entirely; presence in the
// output map is meaningful, so there are no null placeholders.
package extract

import (
	"fmt"

	"github.com/harnesskit/metacache/diag"
	"github.com/harnesskit/metacache/metatree"
)

// fieldAllowlist is the fixed ordered set of recognized metadata fields.
var fieldAllowlist = [...]string{"help", "assert", "author"}

// contactField is lint-checked against the contact format before copying.
const contactField = "author"

// Allowlist returns the recognized metadata field names in their fixed
// order.
func Allowlist() []string {
	out := make([]string, len(fieldAllowlist))
	copy(out, fieldAllowlist[:])
	return out
}

// Record is one executed test as delivered by the harness: a unique name
// and a property bag. Values may be scalars, arrays, or nested mappings;
// they are copied verbatim.
type Record struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

// Fields extracts the allowlisted metadata declared by one test. The
// contact field is lint-checked first; a bad format only produces a
// warning on the sink, extraction always proceeds.
func Fields(rec Record, sink diag.Sink) (metatree.Value, error) {
	out := metatree.Value{Kind: metatree.KindObject}
	for _, field := range fieldAllowlist {
		raw, ok := rec.Properties[field]
		if !ok {
			continue
		}
		if field == contactField {
			lintContact(rec.Name, raw, sink)
		}
		v, err := metatree.FromGoValue(raw)
		if err != nil {
			return metatree.Value{}, fmt.Errorf("extract: test %q, field %q: %w", rec.Name, field, err)
		}
		out.Members = append(out.Members, metatree.Member{Key: field, Value: *v})
	}
	return out, nil
}

// Collect builds the full current metadata map, one entry per distinct
// test name in record order. A repeated name keeps the first occurrence
// and reports the later ones; duplicates are never merged.
func Collect(recs []Record, sink diag.Sink) (*metatree.Value, error) {
	current := metatree.Object()
	seen := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if _, dup := seen[rec.Name]; dup {
			sink.ReportIssue(fmt.Sprintf("duplicate test name %q; keeping the metadata of the first occurrence", rec.Name), diag.Warning)
			continue
		}
		seen[rec.Name] = struct{}{}
		fields, err := Fields(rec, sink)
		if err != nil {
			return nil, err
		}
		current.Members = append(current.Members, metatree.Member{Key: rec.Name, Value: fields})
	}
	return current, nil
}

func lintContact(test string, raw any, sink diag.Sink) {
	for _, s := range contactStrings(raw) {
		if !ValidContact(s) {
			sink.ReportIssue(fmt.Sprintf(
				"test %q: author %q should be in the form \"name <contact>\" or \"name http(s)://...\"",
				test, s), diag.Warning)
		}
	}
}

// contactStrings pulls the string values out of an author property,
// which may be a single string or an array of strings.
func contactStrings(raw any) []string {
	switch t := raw.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
