package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

var (
	idMarker   = []byte(`id="metadata_cache"`)
	scriptOpen = []byte("<script")
	scriptEnd  = []byte("</script>")
	bodyClose  = []byte("</body>")
)

// spliceCacheBlock replaces the existing cache element in doc with
// block, or inserts the block when the document has none (before
// </body> if present, else appended at the end).
func spliceCacheBlock(doc []byte, block string) []byte {
	if at := bytes.Index(doc, idMarker); at >= 0 {
		start := bytes.LastIndex(doc[:at], scriptOpen)
		endRel := bytes.Index(doc[at:], scriptEnd)
		if start >= 0 && endRel >= 0 {
			end := at + endRel + len(scriptEnd)
			out := make([]byte, 0, len(doc)-(end-start)+len(block))
			out = append(out, doc[:start]...)
			out = append(out, block...)
			out = append(out, doc[end:]...)
			return out
		}
	}

	insertion := []byte(block + "\n")
	if at := bytes.Index(doc, bodyClose); at >= 0 {
		out := make([]byte, 0, len(doc)+len(insertion))
		out = append(out, doc[:at]...)
		out = append(out, insertion...)
		out = append(out, doc[at:]...)
		return out
	}

	out := append([]byte(nil), doc...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return append(out, insertion...)
}

// writeAtomic writes data to path via temp file + rename, so a failed
// write never leaves a truncated document behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".metacache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	done := false
	defer func() {
		if !done {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp to final: %w", err)
	}
	done = true
	return nil
}
