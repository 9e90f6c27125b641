package config

import (
	"fmt"

	"github.com/spf13/viper"

	"pneumodash/internal/dataset"
	"pneumodash/internal/geo"
	"pneumodash/internal/logging"
	"pneumodash/internal/region"
)

const (
	DefaultEncoding = dataset.EncodingAuto

	DefaultProjectedThreshold = geo.ProjectedThreshold

	DefaultOutputDir   = "out"
	DefaultChartWidth  = 10.0
	DefaultChartHeight = 6.0

	DefaultLogLevel  = "info"
	DefaultLogFormat = logging.FormatConsole
)

var DefaultAssumedCRS = fmt.Sprintf("EPSG:%d", geo.EPSGCentralBelt)

// ApplyDefaults fills zero-value fields of cfg. Explicit values win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Data.Encoding == "" {
		cfg.Data.Encoding = DefaultEncoding
	}
	cols := dataset.DefaultColumns()
	if len(cfg.Data.Columns.Region) == 0 {
		cfg.Data.Columns.Region = cols.Region
	}
	if len(cfg.Data.Columns.Name) == 0 {
		cfg.Data.Columns.Name = cols.Name
	}
	if len(cfg.Data.Columns.Sex) == 0 {
		cfg.Data.Columns.Sex = cols.Sex
	}
	if len(cfg.Data.Columns.FacilityType) == 0 {
		cfg.Data.Columns.FacilityType = cols.FacilityType
	}
	if len(cfg.Data.Columns.Age) == 0 {
		cfg.Data.Columns.Age = cols.Age
	}

	geoDefaults := geo.DefaultOptions()
	if len(cfg.Boundary.CodeProperties) == 0 {
		cfg.Boundary.CodeProperties = geoDefaults.CodeProperties
	}
	if len(cfg.Boundary.NameProperties) == 0 {
		cfg.Boundary.NameProperties = geoDefaults.NameProperties
	}
	if cfg.Boundary.AssumedCRS == "" {
		cfg.Boundary.AssumedCRS = DefaultAssumedCRS
	}
	if cfg.Boundary.ProjectedThreshold == 0 {
		cfg.Boundary.ProjectedThreshold = DefaultProjectedThreshold
	}

	resolver := region.DefaultOptions()
	if cfg.Resolver.DirectThreshold == 0 {
		cfg.Resolver.DirectThreshold = resolver.DirectThreshold
	}
	if cfg.Resolver.CodeThreshold == 0 {
		cfg.Resolver.CodeThreshold = resolver.CodeThreshold
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Output.ChartWidth == 0 {
		cfg.Output.ChartWidth = DefaultChartWidth
	}
	if cfg.Output.ChartHeight == 0 {
		cfg.Output.ChartHeight = DefaultChartHeight
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// bindKeys registers every scalar key so that environment variables are
// seen by Unmarshal even when no config file sets them.
func bindKeys(v *viper.Viper) {
	for _, key := range []string{
		"data.path", "data.encoding", "data.sheet",
		"boundary.path", "boundary.assumed_crs", "boundary.projected_threshold", "boundary.watch",
		"elderly.path",
		"resolver.direct_threshold", "resolver.code_threshold",
		"output.dir", "output.chart_width", "output.chart_height",
		"log.level", "log.format",
	} {
		_ = v.BindEnv(key)
	}
}
