package holiday

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"plancal/internal/civil"
	appLog "plancal/internal/log"
	"plancal/internal/model"
)

var (
	// ErrInvalidCountry is returned for codes that are not two ASCII letters.
	ErrInvalidCountry = errors.New("invalid country code")
	// ErrPayload is returned when an upstream body is not a holiday list.
	ErrPayload = errors.New("unrecognized holiday payload")
)

var countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// NormalizeCountry upper-cases and trims a country code.
func NormalizeCountry(cc string) string {
	return strings.ToUpper(strings.TrimSpace(cc))
}

// ValidCountry reports whether cc is a normalized two-letter code.
func ValidCountry(cc string) bool {
	return countryPattern.MatchString(cc)
}

// Normalize turns a loosely shaped upstream body into holidays of one
// country and year. It accepts a top-level array or an object with a
// "holidays" array. Entries without a usable "date" are dropped; names are
// read from "name" then "localName". Dates outside year are dropped.
func Normalize(body []byte, country string, year int, source string) ([]model.Holiday, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v["holidays"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: object without holidays list", ErrPayload)
		}
		items = list
	case nil:
		items = nil
	default:
		return nil, fmt.Errorf("%w: top-level %T", ErrPayload, raw)
	}

	out := make([]model.Holiday, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			appLog.Debug("holiday entry dropped: not an object", "country", country, "year", year, "index", i)
			continue
		}
		d, ok := entryDate(obj)
		if !ok {
			appLog.Debug("holiday entry dropped: no usable date", "country", country, "year", year, "index", i)
			continue
		}
		if d.Year != year {
			continue
		}
		out = append(out, model.Holiday{
			Country: country,
			Date:    d,
			Name:    firstString(obj, "name", "localName"),
			Source:  source,
		})
	}
	return model.MergeHolidays(out), nil
}

func entryDate(obj map[string]any) (civil.Date, bool) {
	s, ok := obj["date"].(string)
	if !ok {
		return civil.Date{}, false
	}
	// Some upstreams send full timestamps.
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := civil.Parse(s)
	if err != nil {
		return civil.Date{}, false
	}
	return d.Normalize(), true
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
