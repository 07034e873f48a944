package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray stores an ordered list of strings in a single text column.
// Values are written as a JSON array on every dialect. Reads also accept the
// PostgreSQL array literal ({a,b,"c d"}) so columns migrated from TEXT[] keep working.
type StringArray []string

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return a.parse(string(v))
	case string:
		return a.parse(v)
	default:
		return fmt.Errorf("StringArray: unsupported scan type %T", value)
	}
}

func (a *StringArray) parse(s string) error {
	switch {
	case s == "":
		*a = StringArray{}
		return nil
	case strings.HasPrefix(s, "["):
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return fmt.Errorf("StringArray: %w", err)
		}
		*a = out
		return nil
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		*a = parsePostgresArray(s[1 : len(s)-1])
		return nil
	default:
		*a = StringArray{s}
		return nil
	}
}

// parsePostgresArray splits the body of a PostgreSQL array literal,
// honouring double quotes and backslash escapes.
func parsePostgresArray(body string) StringArray {
	out := StringArray{}
	if body == "" {
		return out
	}

	var cur strings.Builder
	inQuotes, escaped := false, false
	for _, r := range body {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(out, cur.String())
}

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}
