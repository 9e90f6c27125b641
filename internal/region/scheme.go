package region

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Scheme identifies one of the two incompatible two-digit province code tables.
type Scheme int

const (
	SchemeNone Scheme = iota
	// SchemeA is the statistics-office census code set (11, 21..26, 29, 31..39).
	SchemeA
	// SchemeB is the administrative (legal-dong) code set used by the boundary
	// files (11, 26..31, 36, 41..48, 50 and the post-2023 51, 52).
	SchemeB
)

func (s Scheme) String() string {
	switch s {
	case SchemeA:
		return "A"
	case SchemeB:
		return "B"
	default:
		return "none"
	}
}

var schemeATable = map[string]Region{
	"11": SeoulIncheon, "23": SeoulIncheon,
	"31": GyeonggiGangwon, "32": GyeonggiGangwon,
	"25": Chungcheong, "29": Chungcheong, "33": Chungcheong, "34": Chungcheong,
	"24": Jeolla, "35": Jeolla, "36": Jeolla,
	"21": GyeongsangJeju, "22": GyeongsangJeju, "26": GyeongsangJeju,
	"37": GyeongsangJeju, "38": GyeongsangJeju, "39": GyeongsangJeju,
}

var schemeBTable = map[string]Region{
	"11": SeoulIncheon, "28": SeoulIncheon,
	"41": GyeonggiGangwon, "42": GyeonggiGangwon, "51": GyeonggiGangwon,
	"30": Chungcheong, "36": Chungcheong, "43": Chungcheong, "44": Chungcheong,
	"29": Jeolla, "45": Jeolla, "46": Jeolla, "52": Jeolla,
	"26": GyeongsangJeju, "27": GyeongsangJeju, "31": GyeongsangJeju,
	"47": GyeongsangJeju, "48": GyeongsangJeju, "50": GyeongsangJeju,
}

func (s Scheme) table() map[string]Region {
	switch s {
	case SchemeA:
		return schemeATable
	case SchemeB:
		return schemeBTable
	default:
		return nil
	}
}

// Lookup maps a two-digit code under s.
func (s Scheme) Lookup(code string) Region {
	if r, ok := s.table()[code]; ok {
		return r
	}
	return None
}

// Contains reports whether code is a key of the scheme's table.
func (s Scheme) Contains(code string) bool {
	_, ok := s.table()[code]
	return ok
}

// SchemeVote is the outcome of SelectScheme.
type SchemeVote struct {
	Scheme Scheme
	HitsA  int
	HitsB  int
}

// SelectScheme counts how many of the distinct observed two-digit codes are
// keys of each table and picks the one with more hits. Ties go to B. When
// neither table matches anything the vote is SchemeNone.
func SelectScheme(codes []string) SchemeVote {
	var vote SchemeVote
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		if SchemeA.Contains(code) {
			vote.HitsA++
		}
		if SchemeB.Contains(code) {
			vote.HitsB++
		}
	}
	switch {
	case vote.HitsA == 0 && vote.HitsB == 0:
		vote.Scheme = SchemeNone
	case vote.HitsA > vote.HitsB:
		vote.Scheme = SchemeA
	default:
		vote.Scheme = SchemeB
	}
	return vote
}

// TwoDigitCode extracts the leading two-digit province code from a raw code
// such as "11", "11010", "28 " or "41.0". It returns "" when the value does
// not start with two digits.
func TwoDigitCode(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && f >= 10 {
		s = strconv.FormatFloat(f, 'f', 0, 64)
	}
	if len(s) < 2 || !unicode.IsDigit(rune(s[0])) || !unicode.IsDigit(rune(s[1])) {
		return ""
	}
	return s[:2]
}

// LookupCode maps a raw code to a region under the given scheme.
func LookupCode(raw string, s Scheme) Region {
	code := TwoDigitCode(raw)
	if code == "" {
		return None
	}
	return s.Lookup(code)
}

// ParseEnum maps a raw value holding an integer in 1..5 directly.
func ParseEnum(raw string) Region {
	s := strings.TrimSpace(raw)
	if s == "" {
		return None
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return None
	}
	return FromEnum(int(f))
}
