package region

import (
	"strconv"
	"strings"
)

// Sex is the normalized sex label of a record.
type Sex int

const (
	SexUnknown Sex = iota
	Male
	Female
)

func (s Sex) Label() string {
	switch s {
	case Male:
		return "남"
	case Female:
		return "여"
	default:
		return ""
	}
}

func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return "unknown"
	}
}

// ParseSex accepts the numeric codes 1/2 and Korean or English tokens.
func ParseSex(raw string) Sex {
	s := strings.ToLower(strings.TrimSpace(raw))
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		switch f {
		case 1:
			return Male
		case 2:
			return Female
		}
		return SexUnknown
	}
	switch s {
	case "남", "남자", "남성", "male", "m":
		return Male
	case "여", "여자", "여성", "female", "f":
		return Female
	}
	return SexUnknown
}
