package extract

import (
	"strings"
	"testing"

	"github.com/harnesskit/metacache/diag"
	"github.com/harnesskit/metacache/metatree"
)

func TestFieldsAllowlistOnly(t *testing.T) {
	rec := Record{
		Name: "t1",
		Properties: map[string]any{
			"help":    []any{"h"},
			"timeout": float64(2000),
			"flags":   []any{"slow"},
		},
	}
	var sink diag.Recorder
	got, err := Fields(rec, &sink)
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	if len(got.Members) != 1 || got.Members[0].Key != "help" {
		t.Fatalf("got %+v", got.Members)
	}
}

func TestFieldsOmitsUndeclaredFields(t *testing.T) {
	rec := Record{Name: "t1", Properties: map[string]any{"assert": []any{"a"}}}
	var sink diag.Recorder
	got, err := Fields(rec, &sink)
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	if _, ok := got.Lookup("help"); ok {
		t.Fatal("help must be omitted, not placeholdered")
	}
	if _, ok := got.Lookup("assert"); !ok {
		t.Fatal("assert missing")
	}
}

func TestFieldsKeepsAllowlistOrder(t *testing.T) {
	rec := Record{
		Name: "t1",
		Properties: map[string]any{
			"author": []any{"A <a@b.c>"},
			"assert": []any{"x"},
			"help":   []any{"h"},
		},
	}
	var sink diag.Recorder
	got, err := Fields(rec, &sink)
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	want := []string{"help", "assert", "author"}
	for i, m := range got.Members {
		if m.Key != want[i] {
			t.Fatalf("member %d: got %q, want %q", i, m.Key, want[i])
		}
	}
}

func TestFieldsCopiesValuesVerbatim(t *testing.T) {
	rec := Record{Name: "t1", Properties: map[string]any{"help": "scalar, not array"}}
	var sink diag.Recorder
	got, err := Fields(rec, &sink)
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	v, ok := got.Lookup("help")
	if !ok || v.Kind != metatree.KindString || v.Str != "scalar, not array" {
		t.Fatalf("got %+v", v)
	}
}

func TestFieldsLintsBadContactButStillExtracts(t *testing.T) {
	rec := Record{Name: "t1", Properties: map[string]any{"author": []any{"Jane Doe"}}}
	var sink diag.Recorder
	got, err := Fields(rec, &sink)
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	if _, ok := got.Lookup("author"); !ok {
		t.Fatal("author must be extracted despite the lint warning")
	}
	if len(sink.Issues) != 1 || sink.Issues[0].Severity != diag.Warning {
		t.Fatalf("got issues %+v", sink.Issues)
	}
	if !strings.Contains(sink.Issues[0].Message, `"t1"`) {
		t.Fatalf("warning does not name the test: %q", sink.Issues[0].Message)
	}
}

func TestCollectDuplicateNameFirstWins(t *testing.T) {
	recs := []Record{
		{Name: "t1", Properties: map[string]any{"help": []any{"first"}}},
		{Name: "t1", Properties: map[string]any{"help": []any{"second"}}},
		{Name: "t2", Properties: map[string]any{}},
	}
	var sink diag.Recorder
	current, err := Collect(recs, &sink)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(current.Members) != 2 {
		t.Fatalf("got %d entries", len(current.Members))
	}
	entry, _ := current.Lookup("t1")
	help, _ := entry.Lookup("help")
	if help == nil || len(help.Elems) != 1 || help.Elems[0].Str != "first" {
		t.Fatalf("got %+v", help)
	}
	if len(sink.Issues) != 1 || !strings.Contains(sink.Issues[0].Message, "duplicate") {
		t.Fatalf("got issues %+v", sink.Issues)
	}
}

func TestAllowlistIsCopied(t *testing.T) {
	a := Allowlist()
	a[0] = "mutated"
	if Allowlist()[0] != "help" {
		t.Fatal("Allowlist must return a copy")
	}
}

func TestValidContact(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Jane Doe <jane@example.com>", true},
		{"Jane Doe http://example.com/contact", true},
		{"Jane Doe https://example.com/contact", true},
		{"Jane <j@e.org> (editor)", true},
		{"Jane Doe", false},
		{"jane@example.com", false},
		{"", false},
		{"http://example.com", false},
	}
	for _, tc := range cases {
		if got := ValidContact(tc.in); got != tc.want {
			t.Fatalf("ValidContact(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
