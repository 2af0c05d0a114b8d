// Package io serializes placement results.
//
// # JSON
//
// [WriteJSON] and [ReadJSON] use the result document also stored in the
// result cache:
//
//	{
//	  "status": "solved",
//	  "extent": [0, 0, 1000, 800],
//	  "labels": [
//	    {"layer": "cities", "feature_id": "ber", "text": "Berlin",
//	     "x": 12, "y": 14, "width": 36, "height": 10, "angle": 0,
//	     "cost": 0.0001, "ring": [[12, 14], [48, 14], [48, 24], [12, 24], [12, 14]]}
//	  ],
//	  "unplaced": [],
//	  "cost": 0.0001,
//	  "overlaps": 0,
//	  "iterations": 0,
//	  "stats": {"layers": ["cities"], "features": 1, "candidates": 16, "overlaps": 0}
//	}
//
// x and y are the bottom-left corner of the label before rotation by angle
// (radians, counterclockwise). ring holds the four rotated corners, closed.
//
// # GeoJSON
//
// [WriteGeoJSON] emits a FeatureCollection for GIS tools: placed labels are
// Polygons, unplaced labels are Points, both with layer, text, angle, cost
// and placed properties.
package io
