package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pneumodash/internal/config"
	"pneumodash/internal/dashboard"
	"pneumodash/internal/dataset"
	"pneumodash/internal/elderly"
	"pneumodash/internal/geo"
	"pneumodash/internal/logging"
)

var version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pneumodash",
		Short: "Regional pneumonia distribution dashboard",
		Long: `pneumodash maps welfare-facility pneumonia records onto five Korean
macro-regions and reports:
  - per-province standardized regional shares
  - overall and within-region sex distribution
  - facility type distribution
  - a choropleth of dissolved province boundaries
  - correlation with the elderly population ratio`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("data", "", "record file (.csv or .xlsx), overrides data.path")
	pf.String("boundary", "", "province boundary GeoJSON, overrides boundary.path")
	pf.String("elderly", "", "elderly ratio workbook, overrides elderly.path")
	pf.String("out", "", "output directory, overrides output.dir")

	root.AddCommand(aggregateCmd())
	root.AddCommand(dissolveCmd())
	root.AddCommand(reportCmd())
	return root
}

// app is the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	cache  *geo.Cache
}

// setup loads the config, applies flag overrides and builds the logger and
// boundary cache.
func setup(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"data", &cfg.Data.Path},
		{"boundary", &cfg.Boundary.Path},
		{"elderly", &cfg.Elderly.Path},
		{"out", &cfg.Output.Dir},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.dst, _ = cmd.Flags().GetString(o.flag)
		}
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.cache = geo.NewDissolverCache(geo.NewDissolver(cfg.GeoOptions(), logger), logger)
	if cfg.Boundary.Watch && cfg.Boundary.Path != "" {
		if err := a.cache.Watch(cfg.Boundary.Path); err != nil {
			logger.Warn("boundary watch disabled", zap.String("path", cfg.Boundary.Path), zap.Error(err))
		}
	}
	return a, nil
}

func (a *app) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("close boundary cache", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// service loads the record file and, when configured, the elderly workbook.
func (a *app) service() (*dashboard.Service, error) {
	if a.cfg.Data.Path == "" {
		return nil, fmt.Errorf("no record file: set --data or data.path")
	}
	data, err := dataset.Load(a.cfg.Data.Path, a.cfg.DatasetOptions())
	if err != nil {
		return nil, err
	}
	a.logger.Info("records loaded",
		zap.String("path", data.Source),
		zap.Int("records", len(data.Records)),
		zap.Int("skipped", data.Skipped))

	opts := dashboard.Options{
		Resolver:     a.cfg.ResolverOptions(),
		BoundaryPath: a.cfg.Boundary.Path,
	}
	if a.cfg.Elderly.Path != "" {
		t, err := elderly.Load(a.cfg.Elderly.Path)
		if err != nil {
			return nil, err
		}
		opts.Elderly = t
	}
	return dashboard.NewService(data, opts, a.cache, a.logger), nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("type", nil, "facility type codes to include (repeatable)")
	cmd.Flags().Int("age-min", 0, "minimum age, inclusive")
	cmd.Flags().Int("age-max", 0, "maximum age, inclusive")
}

func filterFromFlags(cmd *cobra.Command) (dashboard.Filter, error) {
	var f dashboard.Filter
	f.FacilityTypes, _ = cmd.Flags().GetStringSlice("type")
	if cmd.Flags().Changed("age-min") {
		v, _ := cmd.Flags().GetInt("age-min")
		f.MinAge = &v
	}
	if cmd.Flags().Changed("age-max") {
		v, _ := cmd.Flags().GetInt("age-max")
		f.MaxAge = &v
	}
	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		return f, fmt.Errorf("--age-min %d is greater than --age-max %d", *f.MinAge, *f.MaxAge)
	}
	return f, nil
}
