// Package config loads pneumodash settings from an optional YAML file and
// PNEUMODASH_* environment variables.
package config

import (
	"fmt"

	"pneumodash/internal/dataset"
	"pneumodash/internal/geo"
	"pneumodash/internal/logging"
	"pneumodash/internal/region"
)

type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Boundary BoundaryConfig `mapstructure:"boundary"`
	Elderly  ElderlyConfig  `mapstructure:"elderly"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      logging.Config `mapstructure:"log"`
}

// DataConfig locates the record file.
type DataConfig struct {
	Path     string          `mapstructure:"path"`
	Encoding string          `mapstructure:"encoding"`
	Sheet    string          `mapstructure:"sheet"`
	Columns  dataset.Columns `mapstructure:"columns"`
}

// BoundaryConfig locates the province boundary GeoJSON.
type BoundaryConfig struct {
	Path               string   `mapstructure:"path"`
	CodeProperties     []string `mapstructure:"code_properties"`
	NameProperties     []string `mapstructure:"name_properties"`
	AssumedCRS         string   `mapstructure:"assumed_crs"`
	ProjectedThreshold float64  `mapstructure:"projected_threshold"`
	// Watch invalidates the dissolve cache on file system events.
	Watch bool `mapstructure:"watch"`
}

type ElderlyConfig struct {
	Path string `mapstructure:"path"`
}

type ResolverConfig struct {
	DirectThreshold float64 `mapstructure:"direct_threshold"`
	CodeThreshold   float64 `mapstructure:"code_threshold"`
}

// OutputConfig controls the report command.
type OutputConfig struct {
	Dir         string  `mapstructure:"dir"`
	ChartWidth  float64 `mapstructure:"chart_width"`
	ChartHeight float64 `mapstructure:"chart_height"`
}

// Validate checks ranges and enumerations. Paths are checked by the
// commands that need them.
func (c *Config) Validate() error {
	switch c.Data.Encoding {
	case dataset.EncodingAuto, dataset.EncodingUTF8, dataset.EncodingEUCKR:
	default:
		return fmt.Errorf("config: data.encoding %q is invalid; expected auto|utf-8|euc-kr", c.Data.Encoding)
	}
	if t := c.Resolver.DirectThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("config: resolver.direct_threshold %v is out of range (0, 1]", t)
	}
	if t := c.Resolver.CodeThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("config: resolver.code_threshold %v is out of range (0, 1]", t)
	}
	if _, err := c.AssumedEPSG(); err != nil {
		return fmt.Errorf("config: boundary.assumed_crs: %w", err)
	}
	if c.Boundary.ProjectedThreshold <= 0 {
		return fmt.Errorf("config: boundary.projected_threshold must be > 0, got %v", c.Boundary.ProjectedThreshold)
	}
	if c.Output.ChartWidth <= 0 || c.Output.ChartHeight <= 0 {
		return fmt.Errorf("config: output chart size must be positive, got %vx%v", c.Output.ChartWidth, c.Output.ChartHeight)
	}
	switch c.Log.Format {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}
	return nil
}

// AssumedEPSG parses boundary.assumed_crs.
func (c *Config) AssumedEPSG() (int, error) {
	return geo.ParseEPSG(c.Boundary.AssumedCRS)
}

func (c *Config) DatasetOptions() dataset.Options {
	return dataset.Options{Columns: c.Data.Columns, Encoding: c.Data.Encoding, Sheet: c.Data.Sheet}
}

func (c *Config) GeoOptions() geo.Options {
	epsg, _ := c.AssumedEPSG()
	return geo.Options{
		CodeProperties:     c.Boundary.CodeProperties,
		NameProperties:     c.Boundary.NameProperties,
		AssumedEPSG:        epsg,
		ProjectedThreshold: c.Boundary.ProjectedThreshold,
	}
}

func (c *Config) ResolverOptions() region.Options {
	return region.Options{DirectThreshold: c.Resolver.DirectThreshold, CodeThreshold: c.Resolver.CodeThreshold}
}
