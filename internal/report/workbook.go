// Package report writes a dashboard view out as an Excel workbook and a
// markdown summary.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"pneumodash/internal/aggregate"
	"pneumodash/internal/dashboard"
)

// Sheet names of the workbook.
const (
	SheetStandardized = "권역별_표준화"
	SheetGender       = "성별_분포"
	SheetRegionGender = "권역내_성별"
	SheetFacilities   = "요양기관종별"
	SheetCoverage     = "경계_커버리지"
	SheetCorrelation  = "고령인구_상관"
)

type table struct {
	sheet   string
	headers []string
	rows    [][]interface{}
	width   float64
}

// write puts the header row and data rows of t starting at A1.
func (t table) write(f *excelize.File) error {
	for i, header := range t.headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(t.sheet, cell, header); err != nil {
			return err
		}
		col, _, err := excelize.SplitCellName(cell)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(t.sheet, col, col, t.width); err != nil {
			return err
		}
	}
	for i, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Workbook saves v to path with one sheet per panel. The coverage and
// correlation sheets are only written when the panel succeeded.
func Workbook(v *dashboard.View, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetStandardized); err != nil {
		return err
	}

	tables := []table{
		{SheetStandardized, []string{"권역", "건수", "시도 수", "시도당 건수", "표준화 비율 (%)"}, standardizedRows(v), 22},
		{SheetGender, []string{"성별", "건수", "비율 (%)"}, genderRows(v), 14},
		{SheetRegionGender, []string{"권역", "성별", "건수", "권역 내 비율 (%)"}, regionGenderRows(v), 22},
		{SheetFacilities, []string{"요양기관종별", "건수", "비율 (%)"}, facilityRows(v), 18},
	}
	if v.Map != nil {
		tables = append(tables, table{SheetCoverage, []string{"항목", "값", "코드", "이름"}, coverageRows(v.Map), 20})
	}
	if v.Elderly != nil {
		tables = append(tables, table{SheetCorrelation, []string{"시도", "권역", "고령인구비율 (%)", "표준화 비율 (%)"}, correlationRows(v.Elderly), 20})
	}

	for i, t := range tables {
		if i > 0 {
			if _, err := f.NewSheet(t.sheet); err != nil {
				return fmt.Errorf("sheet %s: %w", t.sheet, err)
			}
		}
		if err := t.write(f); err != nil {
			return fmt.Errorf("sheet %s: %w", t.sheet, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func standardizedRows(v *dashboard.View) [][]interface{} {
	rows := make([][]interface{}, 0, len(v.Rows))
	for _, r := range v.Rows {
		rows = append(rows, []interface{}{
			r.Region.Label(), r.Count, r.Region.SubRegionCount(), r.PerProvince, r.Percent,
		})
	}
	return rows
}

func genderRows(v *dashboard.View) [][]interface{} {
	g := v.Gender
	return [][]interface{}{
		{"남", g.Male, g.MalePercent},
		{"여", g.Female, g.FemalePercent},
	}
}

func regionGenderRows(v *dashboard.View) [][]interface{} {
	rows := make([][]interface{}, 0, len(v.RegionGender))
	for _, r := range v.RegionGender {
		rows = append(rows, []interface{}{r.Region.Label(), r.Sex.Label(), r.Count, r.Percent})
	}
	return rows
}

func facilityRows(v *dashboard.View) [][]interface{} {
	rows := make([][]interface{}, 0, len(v.FacilityTypes))
	for _, r := range v.FacilityTypes {
		rows = append(rows, []interface{}{r.Type, r.Count, r.Percent})
	}
	return rows
}

// coverageRows lists the summary figures followed by every untagged feature.
func coverageRows(mv *dashboard.MapView) [][]interface{} {
	c := mv.Coverage
	rows := [][]interface{}{
		{"원본 피처 수", c.SourceFeatures},
		{"코드 매핑", c.TaggedByCode},
		{"이름 매핑", c.TaggedByName},
		{"전체 커버리지 (%)", percent(c.Overall)},
		{"코드 체계", c.Scheme.Scheme.String()},
		{"좌표계", c.SourceCRS},
		{"좌표계 추정", c.AssumedCRS},
		{"제외된 폴리곤", c.ExcludedParts},
	}
	for _, u := range c.Untagged {
		rows = append(rows, []interface{}{"미매핑 피처", u.ID, u.Code, u.Name})
	}
	return rows
}

func correlationRows(ev *dashboard.ElderlyView) [][]interface{} {
	rows := make([][]interface{}, 0, len(ev.Points)+2)
	for _, p := range ev.Points {
		rows = append(rows, []interface{}{p.Province, p.Region.Label(), p.Elderly, p.Standardized})
	}
	c := ev.Correlation
	if c.Fitted {
		rows = append(rows,
			[]interface{}{},
			[]interface{}{"상관계수 r", c.R, "기울기", c.Slope},
		)
	}
	return rows
}

func percent(ratio float64) float64 {
	return aggregate.Round(ratio*100, 2)
}
