package cachedoc

import (
	"fmt"
	"strings"
	"testing"
)

func docWithCache(content string) []byte {
	return []byte(fmt.Sprintf(
		`<!doctype html><html><head><title>t</title>
<script type="text/json" id="metadata_cache">%s</script>
</head><body></body></html>`, content))
}

func TestLoadAbsent(t *testing.T) {
	s := Load([]byte(`<!doctype html><html><head></head><body><p>no cache</p></body></html>`))
	if s.Class != ClassAbsent {
		t.Fatalf("got class %d", s.Class)
	}
	if !strings.Contains(s.Message(), "not present") {
		t.Fatalf("got message %q", s.Message())
	}
}

func TestLoadAbsentOnEmptyDocument(t *testing.T) {
	if s := Load(nil); s.Class != ClassAbsent {
		t.Fatalf("got class %d", s.Class)
	}
}

func TestLoadNoPayload(t *testing.T) {
	s := Load(docWithCache("/* no braces here */"))
	if s.Class != ClassNoPayload {
		t.Fatalf("got class %d", s.Class)
	}
	if !strings.Contains(s.Message(), "no payload") {
		t.Fatalf("got message %q", s.Message())
	}
}

func TestLoadBadPayload(t *testing.T) {
	s := Load(docWithCache(`/* {"t1": {"help": [}} */`))
	if s.Class != ClassBadPayload {
		t.Fatalf("got class %d", s.Class)
	}
	if s.Err == nil {
		t.Fatal("parse failure must be retained")
	}
	if !strings.Contains(s.Message(), "does not parse") {
		t.Fatalf("got message %q", s.Message())
	}
}

func TestLoadValid(t *testing.T) {
	s := Load(docWithCache(`/*
{
  "t1": {
    "help": ["h"]
  }
}
*/`))
	if s.Class != ClassValid {
		t.Fatalf("got class %d message %q", s.Class, s.Message())
	}
	entry, ok := s.Payload.Lookup("t1")
	if !ok {
		t.Fatal("t1 missing from payload")
	}
	help, ok := entry.Lookup("help")
	if !ok || len(help.Elems) != 1 || help.Elems[0].Str != "h" {
		t.Fatalf("got %+v", help)
	}
}

func TestLoadToleratesWrapperNoise(t *testing.T) {
	// First '{' to last '}' slicing must survive stray wrapper text.
	s := Load(docWithCache(`
   leading junk /*
{"t1": {"assert": ["a"]}}
*/ trailing junk`))
	if s.Class != ClassValid {
		t.Fatalf("got class %d message %q", s.Class, s.Message())
	}
}

func TestLoadElementElsewhereInDocument(t *testing.T) {
	doc := []byte(`<html><body>
<div><script type="text/json" id="metadata_cache">/*{"t1": {}}*/</script></div>
</body></html>`)
	if s := Load(doc); s.Class != ClassValid {
		t.Fatalf("got class %d", s.Class)
	}
}

func TestLoadEmptyObjectPayloadIsValid(t *testing.T) {
	// Present-but-empty is a valid cache, distinct from absent.
	s := Load(docWithCache(`/*{}*/`))
	if s.Class != ClassValid {
		t.Fatalf("got class %d", s.Class)
	}
	if len(s.Payload.Members) != 0 {
		t.Fatalf("got %+v", s.Payload.Members)
	}
}
