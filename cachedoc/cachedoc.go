// Package cachedoc locates and deserializes the metadata cache embedded
// in a test document.
//
// The cache lives in a reserved script element. Its payload is sliced
// out permissively: everything between the first '{' and the last '}'
// of the element's text. That tolerance is deliberate — the payload is
// wrapped in comment markers so the block stays inert, and the slicer
// must not care about the exact wrapper.
package cachedoc

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/harnesskit/metacache/metatree"
)

// ElementID is the reserved id of the embedded cache element.
const ElementID = "metadata_cache"

// Class distinguishes the states a cache load can end in. Absent is not
// the same as present-but-empty, and the two malformed states are kept
// apart so the diagnostic can name the actual failure.
type Class int

const (
	// ClassAbsent: no element with the reserved id exists.
	ClassAbsent Class = iota
	// ClassNoPayload: the element exists but holds no {...} payload.
	ClassNoPayload
	// ClassBadPayload: a payload was found but does not deserialize.
	ClassBadPayload
	// ClassValid: the payload deserialized into a metadata map.
	ClassValid
)

// State is the outcome of one cache load.
type State struct {
	Class   Class
	Payload *metatree.Value // set for ClassValid
	Err     error           // set for ClassBadPayload
}

// Message returns the human-readable description of a non-valid state.
// The absent-cache wording is historical and kept verbatim; downstream
// tooling greps for it.
func (s State) Message() string {
	switch s.Class {
	case ClassAbsent:
		return "Cached metdata not present."
	case ClassNoPayload:
		return "Cached metadata invalid: cache element found, but it contains no payload."
	case ClassBadPayload:
		return fmt.Sprintf("Cached metadata invalid: payload does not parse: %v", s.Err)
	default:
		return ""
	}
}

// Load locates the cache element in an HTML document and deserializes
// its payload. It never fails hard: every outcome is a State.
func Load(doc []byte) State {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return State{Class: ClassAbsent}
	}
	node := findByID(root, ElementID)
	if node == nil {
		return State{Class: ClassAbsent}
	}

	text := textContent(node)
	open := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if open < 0 || last < open {
		return State{Class: ClassNoPayload}
	}

	payload, err := metatree.Parse([]byte(text[open : last+1]))
	if err != nil {
		return State{Class: ClassBadPayload, Err: err}
	}
	return State{Class: ClassValid, Payload: payload}
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
