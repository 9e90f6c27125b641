package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pneumodash/internal/dashboard"
	"pneumodash/internal/geo"
)

// Summary is the input of the markdown report.
type Summary struct {
	Source    string
	Filter    dashboard.Filter
	View      *dashboard.View
	Generated time.Time
}

func describeFilter(f dashboard.Filter) string {
	var parts []string
	if len(f.FacilityTypes) > 0 {
		parts = append(parts, "종별 "+strings.Join(f.FacilityTypes, ", "))
	}
	switch {
	case f.MinAge != nil && f.MaxAge != nil:
		parts = append(parts, fmt.Sprintf("나이 %d-%d", *f.MinAge, *f.MaxAge))
	case f.MinAge != nil:
		parts = append(parts, fmt.Sprintf("나이 %d 이상", *f.MinAge))
	case f.MaxAge != nil:
		parts = append(parts, fmt.Sprintf("나이 %d 이하", *f.MaxAge))
	}
	if len(parts) == 0 {
		return "없음"
	}
	return strings.Join(parts, ", ")
}

// Tables writes the aggregate tables of v as markdown.
func Tables(w io.Writer, v *dashboard.View) error {
	var b strings.Builder

	b.WriteString("### 권역별 표준화 분포\n\n")
	b.WriteString("| 권역 | 건수 | 시도 수 | 표준화 비율 |\n")
	b.WriteString("|------|------|---------|-------------|\n")
	for _, r := range v.Rows {
		fmt.Fprintf(&b, "| %s | %d | %d | %.2f%% |\n", r.Region.Label(), r.Count, r.Region.SubRegionCount(), r.Percent)
	}

	b.WriteString("\n### 성별 분포\n\n")
	fmt.Fprintf(&b, "- **남**: %d명 (%.1f%%)\n", v.Gender.Male, v.Gender.MalePercent)
	fmt.Fprintf(&b, "- **여**: %d명 (%.1f%%)\n", v.Gender.Female, v.Gender.FemalePercent)
	if len(v.RegionGender) > 0 {
		b.WriteString("\n| 권역 | 성별 | 건수 | 권역 내 비율 |\n")
		b.WriteString("|------|------|------|--------------|\n")
		for _, r := range v.RegionGender {
			fmt.Fprintf(&b, "| %s | %s | %d | %.2f%% |\n", r.Region.Label(), r.Sex.Label(), r.Count, r.Percent)
		}
	}

	b.WriteString("\n### 요양기관종별 분포\n\n")
	if len(v.FacilityTypes) == 0 {
		b.WriteString("종별 정보가 없습니다.\n")
	} else {
		b.WriteString("| 종별 | 건수 | 비율 |\n")
		b.WriteString("|------|------|------|\n")
		for _, r := range v.FacilityTypes {
			fmt.Fprintf(&b, "| %s | %d | %.2f%% |\n", r.Type, r.Count, r.Percent)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// CoverageText writes the boundary coverage figures as markdown.
func CoverageText(w io.Writer, c geo.Coverage) error {
	var b strings.Builder
	fmt.Fprintf(&b, "- **원본 피처**: %d\n", c.SourceFeatures)
	fmt.Fprintf(&b, "- **코드 매핑**: %d (%.1f%%, 체계 %s, A %d / B %d)\n",
		c.TaggedByCode, c.ByCode*100, c.Scheme.Scheme, c.Scheme.HitsA, c.Scheme.HitsB)
	fmt.Fprintf(&b, "- **이름 매핑**: %d (%.1f%%)\n", c.TaggedByName, c.ByName*100)
	fmt.Fprintf(&b, "- **전체 커버리지**: %.1f%%\n", c.Overall*100)
	crs := c.SourceCRS
	if c.AssumedCRS {
		crs += " (추정)"
	}
	fmt.Fprintf(&b, "- **좌표계**: %s\n", crs)
	if c.ExcludedParts > 0 {
		fmt.Fprintf(&b, "- **복구 실패로 제외된 폴리곤**: %d\n", c.ExcludedParts)
	}
	if len(c.Untagged) > 0 {
		b.WriteString("\n| 미매핑 피처 | 코드 | 이름 |\n")
		b.WriteString("|-------------|------|------|\n")
		for _, u := range c.Untagged {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", u.ID, u.Code, u.Name)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Markdown writes the full summary report.
func Markdown(w io.Writer, s Summary) error {
	v := s.View
	var b strings.Builder

	b.WriteString("# 폐렴 환자 권역별 분포 리포트\n\n")
	fmt.Fprintf(&b, "- **데이터**: %s\n", s.Source)
	fmt.Fprintf(&b, "- **필터**: %s\n", describeFilter(s.Filter))
	fmt.Fprintf(&b, "- **전체 레코드**: %d\n", v.Records)
	fmt.Fprintf(&b, "- **권역 미매핑**: %d\n", v.Unmapped)
	fmt.Fprintf(&b, "- **분석 대상**: %d\n", v.Population)
	fmt.Fprintf(&b, "- **권역 판별 단계**: %s (커버리지 %.1f%%)\n\n", v.Resolution.Stage, v.Resolution.Coverage*100)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	b.Reset()

	if err := Tables(w, v); err != nil {
		return err
	}

	switch {
	case v.Map != nil:
		if _, err := io.WriteString(w, "\n### 경계 커버리지\n\n"); err != nil {
			return err
		}
		if err := CoverageText(w, v.Map.Coverage); err != nil {
			return err
		}
	case v.MapErr != nil:
		fmt.Fprintf(&b, "\n### 경계 커버리지\n\n지도를 만들 수 없습니다: %v\n", v.MapErr)
	}

	switch {
	case v.Elderly != nil && v.Elderly.Correlation.Fitted:
		c := v.Elderly.Correlation
		fmt.Fprintf(&b, "\n### 고령인구비율 상관분석 (%d년)\n\n", v.Elderly.Year)
		fmt.Fprintf(&b, "- **시도 수**: %d\n", c.N)
		fmt.Fprintf(&b, "- **상관계수 r**: %.3f\n", c.R)
		fmt.Fprintf(&b, "- **회귀식**: y = %.3f + %.3f x\n", c.Intercept, c.Slope)
	case v.ElderlyErr != nil:
		fmt.Fprintf(&b, "\n### 고령인구비율 상관분석\n\n상관분석을 할 수 없습니다: %v\n", v.ElderlyErr)
	}

	fmt.Fprintf(&b, "\n---\n*Generated by pneumodash - %s*\n", s.Generated.Format("2006-01-02 15:04"))
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMarkdown writes the summary report to path.
func WriteMarkdown(path string, s Summary) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Markdown(file, s); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
