// Package dataset loads patient and welfare-facility records from CSV or
// Excel exports.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"pneumodash/internal/region"
)

// ErrMissingColumn is returned when no header matches the region or name
// aliases.
var ErrMissingColumn = errors.New("dataset: missing column")

// Record is one patient or facility row as read from the source file.
type Record struct {
	// RegionCode holds the raw region indicator: an enum value 1..5, an
	// administrative code or a province name, depending on the export.
	RegionCode   string
	RegionName   string
	Sex          region.Sex
	FacilityType string
	Age          int
	HasAge       bool
}

// Signal returns the region inputs of r for the resolver.
func (r Record) Signal() region.Signal {
	return region.Signal{Code: r.RegionCode, Name: r.RegionName}
}

// Columns lists the accepted header aliases per field. Matching ignores case
// and surrounding whitespace.
type Columns struct {
	Region       []string `mapstructure:"region"`
	Name         []string `mapstructure:"name"`
	Sex          []string `mapstructure:"sex"`
	FacilityType []string `mapstructure:"facility_type"`
	Age          []string `mapstructure:"age"`
}

func DefaultColumns() Columns {
	return Columns{
		Region:       []string{"요양기관소재지", "시도코드", "권역", "소재지", "region", "region_code"},
		Name:         []string{"시도", "시도명", "province", "sido"},
		Sex:          []string{"성별", "sex", "gender"},
		FacilityType: []string{"요양기관종별", "시설종류", "시설유형", "facility_type"},
		Age:          []string{"나이", "연령", "age"},
	}
}

// Dataset is a loaded record file.
type Dataset struct {
	Source  string
	Records []Record
	// Header maps each field to the header it was read from.
	Header map[string]string
	// Skipped counts blank rows.
	Skipped int
}

// Signals returns the resolver input for every record.
func (d *Dataset) Signals() []region.Signal {
	out := make([]region.Signal, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Signal()
	}
	return out
}

// Options controls loading.
type Options struct {
	Columns Columns
	// Encoding is "auto", "utf-8" or "euc-kr". It applies to CSV only.
	Encoding string
	// Sheet selects the Excel sheet; the first sheet when empty.
	Sheet string
}

func DefaultOptions() Options {
	return Options{Columns: DefaultColumns(), Encoding: EncodingAuto}
}

// Load reads path as CSV or Excel depending on its extension.
func Load(path string, opts Options) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, opts)
	case ".csv", ".txt", "":
		return LoadCSV(path, opts)
	default:
		return nil, fmt.Errorf("dataset: unsupported file type %q", filepath.Ext(path))
	}
}

type columnIndex struct {
	region, name, sex, facility, age int
}

func findColumn(header []string, aliases []string) (int, string) {
	for _, alias := range aliases {
		want := strings.ToLower(strings.TrimSpace(alias))
		for i, h := range header {
			if strings.ToLower(strings.TrimSpace(h)) == want {
				return i, h
			}
		}
	}
	return -1, ""
}

func indexHeader(header []string, cols Columns) (columnIndex, map[string]string, error) {
	idx := columnIndex{}
	names := make(map[string]string)
	var h string
	idx.region, h = findColumn(header, cols.Region)
	names["region"] = h
	idx.name, h = findColumn(header, cols.Name)
	names["name"] = h
	idx.sex, h = findColumn(header, cols.Sex)
	names["sex"] = h
	idx.facility, h = findColumn(header, cols.FacilityType)
	names["facility_type"] = h
	idx.age, h = findColumn(header, cols.Age)
	names["age"] = h

	if idx.region < 0 && idx.name < 0 {
		return idx, nil, fmt.Errorf("%w: none of %v", ErrMissingColumn, append(append([]string{}, cols.Region...), cols.Name...))
	}
	for k, v := range names {
		if v == "" {
			delete(names, k)
		}
	}
	return idx, names, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// build converts the header and data rows into a Dataset.
func build(source string, rows [][]string, cols Columns) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrMissingColumn, source)
	}
	idx, header, err := indexHeader(rows[0], cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	ds := &Dataset{Source: source, Header: header, Records: make([]Record, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		if blank(row) {
			ds.Skipped++
			continue
		}
		rec := Record{
			RegionCode:   cell(row, idx.region),
			RegionName:   cell(row, idx.name),
			Sex:          region.ParseSex(cell(row, idx.sex)),
			FacilityType: cell(row, idx.facility),
		}
		if age, ok := parseAge(cell(row, idx.age)); ok {
			rec.Age, rec.HasAge = age, true
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func parseAge(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(f), true
}
