package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

const (
	typeFeature           = "Feature"
	typeFeatureCollection = "FeatureCollection"
)

// members of a Feature object that are not foreign members
var featureMembers = map[string]struct{}{
	"type":       {},
	"id":         {},
	"bbox":       {},
	"geometry":   {},
	"properties": {},
}

type geometryDoc struct {
	Type        Kind            `json:"type"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Geometries  []*Geometry     `json:"geometries,omitempty"`
}

// UnmarshalJSON decodes a GeoJSON geometry object, keeping coordinate arity.
// An unknown type tag is kept with its raw coordinates so the builder can
// report it.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var doc geometryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("record: decode geometry: %w", err)
	}

	g.Type = doc.Type
	g.Coordinates = nil
	g.Geometries = nil

	if doc.Type == KindGeometryCollection {
		g.Geometries = doc.Geometries
		return nil
	}
	if isNull(doc.Coordinates) {
		return nil
	}

	var err error
	switch doc.Type {
	case KindPoint:
		var p Position
		err = json.Unmarshal(doc.Coordinates, &p)
		g.Coordinates = p
	case KindLineString, KindMultiPoint:
		var ls LineStringCoords
		err = json.Unmarshal(doc.Coordinates, &ls)
		g.Coordinates = ls
	case KindPolygon, KindMultiLineString:
		var p PolygonCoords
		err = json.Unmarshal(doc.Coordinates, &p)
		g.Coordinates = p
	case KindMultiPolygon:
		var mp []PolygonCoords
		err = json.Unmarshal(doc.Coordinates, &mp)
		g.Coordinates = mp
	default:
		g.Coordinates = doc.Coordinates
	}
	if err != nil {
		return fmt.Errorf("record: decode %s coordinates: %w", doc.Type, err)
	}
	return nil
}

// MarshalJSON encodes the geometry as a GeoJSON geometry object.
func (g *Geometry) MarshalJSON() ([]byte, error) {
	if g.Type == KindGeometryCollection {
		geometries := g.Geometries
		if geometries == nil {
			geometries = []*Geometry{}
		}
		return json.Marshal(struct {
			Type       Kind        `json:"type"`
			Geometries []*Geometry `json:"geometries"`
		}{g.Type, geometries})
	}
	return json.Marshal(struct {
		Type        Kind `json:"type"`
		Coordinates any  `json:"coordinates"`
	}{g.Type, g.Coordinates})
}

// UnmarshalJSON decodes a GeoJSON Feature object. Unknown members are kept
// in ForeignMembers.
func (f *Feature) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("record: decode feature: %w", err)
	}

	var typ string
	if raw, ok := members["type"]; ok {
		if err := json.Unmarshal(raw, &typ); err != nil {
			return fmt.Errorf("record: decode feature type: %w", err)
		}
	}
	if typ != typeFeature {
		return fmt.Errorf("%w: type %q", ErrNotFeature, typ)
	}

	*f = Feature{}

	if raw, ok := members["id"]; ok && !isNull(raw) {
		var id any
		if err := json.Unmarshal(raw, &id); err != nil {
			return fmt.Errorf("record: decode feature id: %w", err)
		}
		switch id.(type) {
		case string, float64:
			f.ID = id
		default:
			return fmt.Errorf("%w: %s", ErrInvalidID, raw)
		}
	}

	if raw, ok := members["bbox"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &f.BBox); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBBox, err)
		}
	}

	if raw, ok := members["geometry"]; ok && !isNull(raw) {
		f.Geometry = &Geometry{}
		if err := json.Unmarshal(raw, f.Geometry); err != nil {
			return err
		}
	}

	if raw, ok := members["properties"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &f.Properties); err != nil {
			return fmt.Errorf("record: decode feature properties: %w", err)
		}
	}

	for name, raw := range members {
		if _, known := featureMembers[name]; known {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("record: decode member %q: %w", name, err)
		}
		if f.ForeignMembers == nil {
			f.ForeignMembers = make(map[string]any)
		}
		f.ForeignMembers[name] = v
	}

	return nil
}

// MarshalJSON encodes the record as a GeoJSON Feature object. Foreign
// members never override the standard ones.
func (f *Feature) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.ForeignMembers)+5)
	for name, v := range f.ForeignMembers {
		out[name] = v
	}

	out["type"] = typeFeature
	if f.ID != nil {
		out["id"] = f.ID
	} else {
		delete(out, "id")
	}
	if len(f.BBox) > 0 {
		out["bbox"] = f.BBox
	} else {
		delete(out, "bbox")
	}
	out["geometry"] = f.Geometry
	out["properties"] = f.Properties

	return json.Marshal(out)
}

// Collection is a decoded GeoJSON FeatureCollection.
type Collection struct {
	BBox           []float64
	Features       []*Feature
	ForeignMembers map[string]any
}

// UnmarshalJSON decodes a GeoJSON FeatureCollection object.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var doc struct {
		Type     string            `json:"type"`
		BBox     []float64         `json:"bbox"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("record: decode feature collection: %w", err)
	}
	if doc.Type != typeFeatureCollection {
		return fmt.Errorf("%w: type %q", ErrNotCollection, doc.Type)
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("record: decode feature collection: %w", err)
	}

	*c = Collection{BBox: doc.BBox, Features: make([]*Feature, 0, len(doc.Features))}
	for i, raw := range doc.Features {
		f := &Feature{}
		if err := json.Unmarshal(raw, f); err != nil {
			return fmt.Errorf("record: feature %d: %w", i, err)
		}
		c.Features = append(c.Features, f)
	}

	for name, raw := range members {
		switch name {
		case "type", "bbox", "features":
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("record: decode member %q: %w", name, err)
		}
		if c.ForeignMembers == nil {
			c.ForeignMembers = make(map[string]any)
		}
		c.ForeignMembers[name] = v
	}
	return nil
}

// ParseFeature decodes a single GeoJSON Feature.
func ParseFeature(data []byte) (*Feature, error) {
	f := &Feature{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseFeatureCollection decodes a GeoJSON FeatureCollection and returns its
// features in document order.
func ParseFeatureCollection(data []byte) ([]*Feature, error) {
	c := &Collection{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c.Features, nil
}

// Parse accepts either a top-level Feature or a FeatureCollection.
func Parse(data []byte) ([]*Feature, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("record: decode document: %w", err)
	}

	switch head.Type {
	case typeFeature:
		f, err := ParseFeature(data)
		if err != nil {
			return nil, err
		}
		return []*Feature{f}, nil
	case typeFeatureCollection:
		return ParseFeatureCollection(data)
	default:
		return nil, fmt.Errorf("record: unsupported document type %q", head.Type)
	}
}

// ParseFile reads a GeoJSON Feature or FeatureCollection from disk.
func ParseFile(path string) ([]*Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	features, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return features, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
