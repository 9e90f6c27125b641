package region

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// nameTable holds official province names as they appear in boundary files
// and statistics exports, including both sides of historical renames.
var nameTable = map[string]Region{
	"서울특별시": SeoulIncheon,
	"인천광역시": SeoulIncheon,

	"경기도":     GyeonggiGangwon,
	"강원도":     GyeonggiGangwon,
	"강원특별자치도": GyeonggiGangwon,

	"충청북도":    Chungcheong,
	"충청남도":    Chungcheong,
	"세종특별자치시": Chungcheong,
	"대전광역시":   Chungcheong,

	"전라북도":    Jeolla,
	"전북특별자치도": Jeolla,
	"전라남도":    Jeolla,
	"광주광역시":   Jeolla,

	"경상북도":    GyeongsangJeju,
	"경상남도":    GyeongsangJeju,
	"부산광역시":   GyeongsangJeju,
	"대구광역시":   GyeongsangJeju,
	"울산광역시":   GyeongsangJeju,
	"제주특별자치도": GyeongsangJeju,

	"Seoul":                                  SeoulIncheon,
	"Incheon":                                SeoulIncheon,
	"Gyeonggi-do":                            GyeonggiGangwon,
	"Gangwon-do":                             GyeonggiGangwon,
	"Gangwon Special Self-Governing Province": GyeonggiGangwon,
	"Chungcheongbuk-do":                      Chungcheong,
	"Chungcheongnam-do":                      Chungcheong,
	"Sejong":                                 Chungcheong,
	"Daejeon":                                Chungcheong,
	"Jeollabuk-do":                           Jeolla,
	"Jeonbuk State":                          Jeolla,
	"Jeollanam-do":                           Jeolla,
	"Gwangju":                                Jeolla,
	"Gyeongsangbuk-do":                       GyeongsangJeju,
	"Gyeongsangnam-do":                       GyeongsangJeju,
	"Busan":                                  GyeongsangJeju,
	"Daegu":                                  GyeongsangJeju,
	"Ulsan":                                  GyeongsangJeju,
	"Jeju-do":                                GyeongsangJeju,
	"Jeju Special Self-Governing Province":   GyeongsangJeju,
}

// normalizedTable is keyed by NormalizeName output.
var normalizedTable = map[string]Region{
	"서울": SeoulIncheon, "인천": SeoulIncheon,
	"경기": GyeonggiGangwon, "강원": GyeonggiGangwon,
	"충청북": Chungcheong, "충북": Chungcheong, "충청남": Chungcheong, "충남": Chungcheong,
	"세종": Chungcheong, "대전": Chungcheong,
	"전라북": Jeolla, "전북": Jeolla, "전라남": Jeolla, "전남": Jeolla, "광주": Jeolla,
	"경상북": GyeongsangJeju, "경북": GyeongsangJeju, "경상남": GyeongsangJeju, "경남": GyeongsangJeju,
	"부산": GyeongsangJeju, "대구": GyeongsangJeju, "울산": GyeongsangJeju, "제주": GyeongsangJeju,

	"seoul": SeoulIncheon, "incheon": SeoulIncheon,
	"gyeonggi": GyeonggiGangwon, "gangwon": GyeonggiGangwon,
	"chungcheongbuk": Chungcheong, "northchungcheong": Chungcheong, "chungbuk": Chungcheong,
	"chungcheongnam": Chungcheong, "southchungcheong": Chungcheong, "chungnam": Chungcheong,
	"sejong": Chungcheong, "daejeon": Chungcheong,
	"jeollabuk": Jeolla, "northjeolla": Jeolla, "jeonbuk": Jeolla,
	"jeollanam": Jeolla, "southjeolla": Jeolla, "jeonnam": Jeolla, "gwangju": Jeolla,
	"gyeongsangbuk": GyeongsangJeju, "northgyeongsang": GyeongsangJeju, "gyeongbuk": GyeongsangJeju,
	"gyeongsangnam": GyeongsangJeju, "southgyeongsang": GyeongsangJeju, "gyeongnam": GyeongsangJeju,
	"busan": GyeongsangJeju, "daegu": GyeongsangJeju, "ulsan": GyeongsangJeju, "jeju": GyeongsangJeju,
}

// adminSuffixes are stripped from a lowercased, whitespace-free name.
// Longer suffixes come first so that "특별자치도" wins over "도".
var adminSuffixes = []string{
	"specialself-governingprovince",
	"specialself-governingcity",
	"specialautonomousprovince",
	"specialautonomouscity",
	"metropolitancity",
	"specialcity",
	"province",
	"state",
	"city",
	"-do",
	"-si",
	"특별자치도",
	"특별자치시",
	"특별시",
	"광역시",
	"자치도",
	"도",
	"시",
}

// NormalizeName folds a province name to the key space of the normalized
// table: NFC, lowercase, no whitespace, first matching admin suffix removed,
// punctuation dropped.
func NormalizeName(name string) string {
	s := norm.NFC.String(name)
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	for _, suffix := range adminSuffixes {
		if !strings.HasSuffix(s, suffix) {
			continue
		}
		rest := strings.TrimSuffix(s, suffix)
		if utf8.RuneCountInString(rest) < 2 {
			continue
		}
		s = rest
		break
	}
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || r == '.' || r == '·' {
			return -1
		}
		return r
	}, s)
}

// LookupName tries the direct name table first, then the normalized table.
func LookupName(name string) Region {
	trimmed := strings.TrimSpace(norm.NFC.String(name))
	if trimmed == "" {
		return None
	}
	if r, ok := nameTable[trimmed]; ok {
		return r
	}
	if r, ok := normalizedTable[NormalizeName(trimmed)]; ok {
		return r
	}
	return None
}

// CanonicalProvinceName maps historical province names to their current
// official form (강원도 -> 강원특별자치도, 전라북도 -> 전북특별자치도).
func CanonicalProvinceName(name string) string {
	trimmed := strings.TrimSpace(norm.NFC.String(name))
	switch trimmed {
	case "강원도":
		return "강원특별자치도"
	case "전라북도":
		return "전북특별자치도"
	}
	return trimmed
}
