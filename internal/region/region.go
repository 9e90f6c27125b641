// Package region maps raw administrative-area signals to the five canonical
// macro-regions used by the dashboard.
package region

import "fmt"

// Region is one of the five canonical macro-regions. The zero value None
// marks a signal that could not be mapped.
type Region int

const (
	None Region = iota
	SeoulIncheon
	GyeonggiGangwon
	Chungcheong
	Jeolla
	GyeongsangJeju
)

// All lists the canonical regions in their fixed enumeration order.
var All = []Region{SeoulIncheon, GyeonggiGangwon, Chungcheong, Jeolla, GyeongsangJeju}

type regionInfo struct {
	label     string
	key       string
	provinces []string
}

var infos = map[Region]regionInfo{
	SeoulIncheon: {
		label:     "서울,인천",
		key:       "seoul_incheon",
		provinces: []string{"서울특별시", "인천광역시"},
	},
	GyeonggiGangwon: {
		label:     "경기,강원",
		key:       "gyeonggi_gangwon",
		provinces: []string{"경기도", "강원특별자치도"},
	},
	Chungcheong: {
		label:     "충청권(충북, 충남, 세종, 대전)",
		key:       "chungcheong",
		provinces: []string{"충청북도", "충청남도", "세종특별자치시", "대전광역시"},
	},
	Jeolla: {
		label:     "전라권(전북, 전남, 광주)",
		key:       "jeolla",
		provinces: []string{"전북특별자치도", "전라남도", "광주광역시"},
	},
	GyeongsangJeju: {
		label: "경상권(경북, 경남, 부산, 대구, 울산, 제주)",
		key:   "gyeongsang_jeju",
		provinces: []string{"경상북도", "경상남도", "부산광역시",
			"대구광역시", "울산광역시", "제주특별자치도"},
	},
}

func (r Region) Valid() bool {
	_, ok := infos[r]
	return ok
}

func (r Region) Label() string {
	if info, ok := infos[r]; ok {
		return info.label
	}
	return "미분류"
}

// Key is the GeoJSON join key.
func (r Region) Key() string {
	if info, ok := infos[r]; ok {
		return info.key
	}
	return "unmapped"
}

func (r Region) String() string {
	return r.Key()
}

// SubRegionCount is the number of provinces grouped into r. It is the
// standardization divisor and is fixed data.
func (r Region) SubRegionCount() int {
	if info, ok := infos[r]; ok {
		return len(info.provinces)
	}
	return 0
}

// Provinces returns the current official names of the provinces in r.
func (r Region) Provinces() []string {
	info, ok := infos[r]
	if !ok {
		return nil
	}
	out := make([]string, len(info.provinces))
	copy(out, info.provinces)
	return out
}

// FromEnum maps the direct 1..5 enumeration used by the records dataset.
func FromEnum(n int) Region {
	r := Region(n)
	if r.Valid() {
		return r
	}
	return None
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Region, error) {
	for _, r := range All {
		if r.Key() == key {
			return r, nil
		}
	}
	return None, fmt.Errorf("unknown region key %q", key)
}
