package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordsCSV = `요양기관소재지,성별,요양기관종별,나이
1,1,01,70
1,2,01,75
2,2,21,80
3,1,28,66
5,2,01,90
9,1,01,71
`

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, []byte(recordsCSV), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAggregate(t *testing.T) {
	out, err := execute(t, "aggregate", "--data", writeRecords(t))
	require.NoError(t, err)

	assert.Contains(t, out, "records 6, unmapped 1, selected 5")
	assert.Contains(t, out, "| 서울,인천 | 2 | 2 |")
	assert.Contains(t, out, "| 01 | 3 | 60.00% |")
}

func TestAggregate_Filter(t *testing.T) {
	out, err := execute(t, "aggregate", "--data", writeRecords(t), "--type", "01", "--age-max", "80")
	require.NoError(t, err)
	assert.Contains(t, out, "selected 2")
}

func TestAggregate_Errors(t *testing.T) {
	_, err := execute(t, "aggregate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no record file")

	_, err = execute(t, "aggregate", "--data", writeRecords(t), "--age-min", "90", "--age-max", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greater than")
}

func TestReport_WithoutBoundary(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "report", "--data", writeRecords(t), "--out", dir)
	require.NoError(t, err)

	for _, name := range []string{"report.xlsx", "standardized.png", "gender.png", "facility_types.png", "report.md"} {
		assert.FileExists(t, filepath.Join(dir, name))
		assert.Contains(t, out, name)
	}
	assert.NoFileExists(t, filepath.Join(dir, "choropleth.png"))

	md, err := os.ReadFile(filepath.Join(dir, "report.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# "))
}

func TestDissolve_RequiresBoundary(t *testing.T) {
	_, err := execute(t, "dissolve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no boundary file")
}

func TestDissolve_WritesGeoJSON(t *testing.T) {
	boundary := filepath.Join(t.TempDir(), "sido.geojson")
	require.NoError(t, os.WriteFile(boundary, []byte(`{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"CTPRVN_CD": "11", "CTP_KOR_NM": "서울특별시"},
     "geometry": {"type": "Polygon", "coordinates": [[[126.8,37.4],[127.1,37.4],[127.1,37.7],[126.8,37.7],[126.8,37.4]]]}},
    {"type": "Feature", "properties": {"CTPRVN_CD": "28", "CTP_KOR_NM": "인천광역시"},
     "geometry": {"type": "Polygon", "coordinates": [[[126.5,37.4],[126.8,37.4],[126.8,37.7],[126.5,37.7],[126.5,37.4]]]}}
  ]
}`), 0o644))

	output := filepath.Join(t.TempDir(), "regions.geojson")
	out, err := execute(t, "dissolve", "--boundary", boundary, "--data", writeRecords(t), "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 regions")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"region":"seoul_incheon"`)
	assert.Contains(t, string(data), `"percent"`)
}
