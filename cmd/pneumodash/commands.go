package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pneumodash/internal/chart"
	"pneumodash/internal/dashboard"
	"pneumodash/internal/geo"
	"pneumodash/internal/region"
	"pneumodash/internal/report"
)

func aggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Print the standardized, sex and facility type distributions",
		Long: `Load the record file, resolve every record to a macro-region and print
the aggregate tables for the selected population.

Example:
  pneumodash aggregate --data records.csv
  pneumodash aggregate --data records.xlsx --type 28 --age-min 65`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.service()
			if err != nil {
				return err
			}
			v := svc.View(f)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "records %d, unmapped %d, selected %d (stage %s, coverage %.1f%%)\n\n",
				v.Records, v.Unmapped, v.Population, v.Resolution.Stage, v.Resolution.Coverage*100)
			return report.Tables(out, v)
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func dissolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dissolve",
		Short: "Dissolve province boundaries into macro-region GeoJSON",
		Long: `Read the province boundary GeoJSON, reproject it to WGS84, repair and
dissolve it into the five macro-regions, and write the result. With --data
the standardized share of every region is joined in as "percent".

Example:
  pneumodash dissolve --boundary sido.geojson
  pneumodash dissolve --boundary sido.geojson --data records.csv --output regions.geojson`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.Boundary.Path == "" {
				return fmt.Errorf("no boundary file: set --boundary or boundary.path")
			}
			res, err := a.cache.Get(a.cfg.Boundary.Path)
			if err != nil {
				return err
			}

			var extra map[region.Region]map[string]interface{}
			if a.cfg.Data.Path != "" {
				f, err := filterFromFlags(cmd)
				if err != nil {
					return err
				}
				svc, err := a.service()
				if err != nil {
					return err
				}
				extra = dashboard.JoinMap(res, svc.View(f).Rows).Properties()
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				if err := os.MkdirAll(a.cfg.Output.Dir, 0o755); err != nil {
					return fmt.Errorf("create output dir %s: %w", a.cfg.Output.Dir, err)
				}
				output = filepath.Join(a.cfg.Output.Dir, "regions.geojson")
			}
			if err := geo.WriteFeatureCollection(output, geo.FeatureCollection(res.Boundaries, extra)); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wrote %d regions to %s\n\n", len(res.Boundaries), output)
			return report.CoverageText(out, res.Coverage)
		},
	}
	cmd.Flags().String("output", "", "GeoJSON output file (default <out>/regions.geojson)")
	addFilterFlags(cmd)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the workbook, charts, map and markdown summary",
		Long: `Compute the full dashboard for the selected population and write into
the output directory:
  report.xlsx          one sheet per panel
  standardized.png     standardized regional shares
  gender.png           overall and within-region sex split
  facility_types.png   facility type distribution
  choropleth.png       region map (needs a boundary file)
  regions.geojson      dissolved regions with "percent" (needs a boundary file)
  correlation.png      elderly ratio correlation (needs an elderly workbook)
  report.md            summary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.service()
			if err != nil {
				return err
			}
			v := svc.View(f)

			dir := a.cfg.Output.Dir
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir %s: %w", dir, err)
			}
			written, err := a.writeReport(dir, v, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range written {
				fmt.Fprintf(out, "wrote %s\n", p)
			}
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

// writeReport writes every output of v under dir and returns the written
// paths. Failures of the aggregate outputs abort; optional panels that cannot
// be drawn are logged and skipped.
func (a *app) writeReport(dir string, v *dashboard.View, f dashboard.Filter) ([]string, error) {
	size := chart.Inches(a.cfg.Output.ChartWidth, a.cfg.Output.ChartHeight)
	var written []string
	path := func(name string) string { return filepath.Join(dir, name) }

	required := []struct {
		name  string
		write func(string) error
	}{
		{"report.xlsx", func(p string) error { return report.Workbook(v, p) }},
		{"standardized.png", func(p string) error { return chart.Standardized(v.Rows, size, p) }},
		{"gender.png", func(p string) error { return chart.Gender(v.Gender, v.RegionGender, size, p) }},
	}
	for _, r := range required {
		if err := r.write(path(r.name)); err != nil {
			return written, err
		}
		written = append(written, path(r.name))
	}

	optional := []struct {
		name  string
		ready bool
		write func(string) error
	}{
		{"facility_types.png", len(v.FacilityTypes) > 0, func(p string) error {
			return chart.FacilityTypes(v.FacilityTypes, size, p)
		}},
		{"choropleth.png", v.Map != nil, func(p string) error {
			return chart.Choropleth(v.Map, chart.Inches(a.cfg.Output.ChartHeight, a.cfg.Output.ChartWidth), p)
		}},
		{"regions.geojson", v.Map != nil, func(p string) error {
			return geo.WriteFeatureCollection(p, geo.FeatureCollection(v.Map.Boundaries, v.Map.Properties()))
		}},
		{"correlation.png", v.Elderly != nil && v.ElderlyErr == nil, func(p string) error {
			return chart.Correlation(v.Elderly, size, p)
		}},
	}
	for _, o := range optional {
		if !o.ready {
			continue
		}
		if err := o.write(path(o.name)); err != nil {
			a.logger.Warn("output skipped", zap.String("file", o.name), zap.Error(err))
			continue
		}
		written = append(written, path(o.name))
	}

	md := path("report.md")
	err := report.WriteMarkdown(md, report.Summary{
		Source:    a.cfg.Data.Path,
		Filter:    f,
		View:      v,
		Generated: time.Now(),
	})
	if err != nil {
		return written, err
	}
	return append(written, md), nil
}
