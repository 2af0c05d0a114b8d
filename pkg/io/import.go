package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadJSON decodes a result written by [WriteJSON]. Nil label lists are
// normalized to empty slices.
func ReadJSON(r io.Reader) (*Result, error) {
	var res Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if res.Labels == nil {
		res.Labels = []Label{}
	}
	if res.Unplaced == nil {
		res.Unplaced = []Label{}
	}
	if res.Stats.Layers == nil {
		res.Stats.Layers = []string{}
	}
	return &res, nil
}

// ImportJSON reads a result file written by [ExportJSON].
func ImportJSON(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
