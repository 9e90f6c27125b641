package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

const (
	EncodingAuto  = "auto"
	EncodingUTF8  = "utf-8"
	EncodingEUCKR = "euc-kr"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadCSV reads a record CSV. Public health exports often come in EUC-KR
// (CP949); "auto" decodes as EUC-KR whenever the bytes are not valid UTF-8.
func LoadCSV(path string, opts Options) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open record file %s: %w", path, err)
	}
	text, err := decode(data, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	return build(path, rows, columnsOrDefault(opts.Columns))
}

func decode(data []byte, encoding string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	switch strings.ToLower(encoding) {
	case "", EncodingAuto:
		if utf8.Valid(data) {
			return string(data), nil
		}
	case EncodingUTF8, "utf8":
		return string(data), nil
	case EncodingEUCKR, "euckr", "cp949":
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}
	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func columnsOrDefault(c Columns) Columns {
	def := DefaultColumns()
	if len(c.Region) == 0 {
		c.Region = def.Region
	}
	if len(c.Name) == 0 {
		c.Name = def.Name
	}
	if len(c.Sex) == 0 {
		c.Sex = def.Sex
	}
	if len(c.FacilityType) == 0 {
		c.FacilityType = def.FacilityType
	}
	if len(c.Age) == 0 {
		c.Age = def.Age
	}
	return c
}
