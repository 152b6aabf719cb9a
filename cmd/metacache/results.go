package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/harnesskit/metacache/diag"
	"github.com/harnesskit/metacache/extract"
	"github.com/harnesskit/metacache/pass"
	"github.com/harnesskit/metacache/render"
)

// fileConfig is the optional JSON config file. Unknown fields are
// rejected so a typo fails loudly instead of being ignored.
type fileConfig struct {
	Results string `json:"results"`
	Doc     string `json:"doc"`
	Strict  bool   `json:"strict"`
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cfg fileConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config json: %w", err)
	}
	if err := ensureSingleJSONDocument(dec); err != nil {
		return nil, fmt.Errorf("decode config json: %w", err)
	}
	return &cfg, nil
}

// loadResults reads the completion payload: the executed tests plus the
// run status object. "-" or an empty path reads stdin.
func loadResults(path string, stdin io.Reader) (pass.Result, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = readBounded(stdin)
		if err != nil {
			return pass.Result{}, fmt.Errorf("read results from stdin: %w", err)
		}
	} else {
		data, err = readFileBounded(path)
		if err != nil {
			return pass.Result{}, err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var res pass.Result
	if err := dec.Decode(&res); err != nil {
		return pass.Result{}, fmt.Errorf("decode results json: %w", err)
	}
	if err := ensureSingleJSONDocument(dec); err != nil {
		return pass.Result{}, fmt.Errorf("decode results json: %w", err)
	}
	return res, nil
}

func ensureSingleJSONDocument(dec *json.Decoder) error {
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("unexpected trailing json content")
		}
		return fmt.Errorf("decode trailing json token: %w", err)
	}
	return nil
}

// renderBlock builds the current metadata map and renders the cache
// block. Advisory diagnostics go to stderr.
func renderBlock(res pass.Result, stderr io.Writer) (string, error) {
	current, err := extract.Collect(res.Tests, diag.NewTermSink(stderr))
	if err != nil {
		return "", err
	}
	return render.CacheBlock(current), nil
}
