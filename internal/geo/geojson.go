package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"pneumodash/internal/region"
)

// ErrNoFeatures is returned when a boundary file holds no features.
var ErrNoFeatures = errors.New("geo: boundary file has no features")

// Feature is one source boundary feature.
type Feature struct {
	ID       string
	Code     string
	Name     string
	Geometry orb.Geometry
}

// Collection is a decoded boundary file.
type Collection struct {
	Features []Feature
	// CRS is the declared reference system name, empty when undeclared.
	CRS string
}

type crsMember struct {
	CRS *struct {
		Type       string `json:"type"`
		Properties struct {
			Name string `json:"name"`
			Code int    `json:"code"`
		} `json:"properties"`
	} `json:"crs"`
}

// ReadCollection decodes a GeoJSON boundary file.
func ReadCollection(path string, codeKeys, nameKeys []string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundary file %s: %w", path, err)
	}
	return DecodeCollection(data, codeKeys, nameKeys)
}

// DecodeCollection decodes GeoJSON bytes, picking the first non-empty code
// and name property from the given key lists.
func DecodeCollection(data []byte, codeKeys, nameKeys []string) (*Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode boundary geojson: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, ErrNoFeatures
	}

	var member crsMember
	if err := json.Unmarshal(data, &member); err != nil {
		return nil, fmt.Errorf("decode boundary crs: %w", err)
	}

	col := &Collection{Features: make([]Feature, 0, len(fc.Features))}
	if member.CRS != nil {
		col.CRS = member.CRS.Properties.Name
		if col.CRS == "" && member.CRS.Properties.Code != 0 {
			col.CRS = "EPSG:" + strconv.Itoa(member.CRS.Properties.Code)
		}
	}

	for i, f := range fc.Features {
		id := propertyString(f.ID)
		if id == "" {
			id = strconv.Itoa(i)
		}
		col.Features = append(col.Features, Feature{
			ID:       id,
			Code:     firstProperty(f.Properties, codeKeys),
			Name:     firstProperty(f.Properties, nameKeys),
			Geometry: f.Geometry,
		})
	}
	return col, nil
}

func firstProperty(props geojson.Properties, keys []string) string {
	for _, k := range keys {
		if v, ok := props[k]; ok {
			if s := propertyString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func propertyString(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatFloat(v, 'f', 0, 64)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// FeatureCollection encodes dissolved boundaries for the renderer. The
// region key is stored under "region", the label under "label"; extra
// properties per region are merged in.
func FeatureCollection(boundaries []Boundary, extra map[region.Region]map[string]interface{}) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, b := range boundaries {
		f := geojson.NewFeature(b.Geometry)
		f.ID = b.Region.Key()
		f.Properties["region"] = b.Region.Key()
		f.Properties["label"] = b.Region.Label()
		f.Properties["source_features"] = b.Features
		lp := b.LabelPoint()
		f.Properties["label_point"] = []float64{lp[0], lp[1]}
		for k, v := range extra[b.Region] {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	return fc
}

// WriteFeatureCollection writes fc as GeoJSON to path.
func WriteFeatureCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode boundaries: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write boundaries %s: %w", path, err)
	}
	return nil
}
