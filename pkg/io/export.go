package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// WriteJSON encodes a result as indented JSON. The output can be read back
// with [ReadJSON].
func WriteJSON(r *Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a result to a JSON file at path.
func ExportJSON(r *Result, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(r, w) })
}

// FeatureCollection converts a result to GeoJSON. Each placed label becomes
// a Polygon feature; each unplaced label a Point feature at its anchor.
// Properties carry layer, feature_id, text, angle, cost and placed.
func FeatureCollection(r *Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range r.Labels {
		fc.Append(labelFeature(l, true))
	}
	for _, l := range r.Unplaced {
		fc.Append(labelFeature(l, false))
	}
	return fc
}

func labelFeature(l Label, placed bool) *geojson.Feature {
	var g orb.Geometry = orb.Point{l.X, l.Y}
	if placed && len(l.Ring) > 0 {
		g = orb.Polygon{l.Ring}
	}
	f := geojson.NewFeature(g)
	if l.FeatureID != "" {
		f.ID = l.FeatureID
	}
	f.Properties["layer"] = l.Layer
	f.Properties["text"] = l.Text
	f.Properties["angle"] = l.Angle
	f.Properties["cost"] = l.Cost
	f.Properties["placed"] = placed
	return f
}

// WriteGeoJSON encodes the result as a GeoJSON FeatureCollection.
func WriteGeoJSON(r *Result, w io.Writer) error {
	data, err := FeatureCollection(r).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ExportGeoJSON writes the result as GeoJSON to path.
func ExportGeoJSON(r *Result, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteGeoJSON(r, w) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
