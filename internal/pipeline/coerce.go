package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const dateLayout = "2006-01-02"

var (
	errUnsupported = errors.New("unsupported value")
	errRequired    = errors.New("value required")
)

// coerce converts raw into the Go value bound for spec. An empty string for
// a non-text kind clears a nullable column and yields nil; NOT NULL columns
// reject it.
func coerce(spec FieldSpec, raw any) (any, error) {
	kind := spec.Kind
	if s, ok := raw.(string); ok && kind != KindString && kind != KindStringList && strings.TrimSpace(s) == "" {
		if !spec.Nullable {
			return nil, errRequired
		}
		return nil, nil
	}

	switch kind {
	case KindString:
		return toString(raw)
	case KindInteger:
		return toInteger(raw)
	case KindDecimal:
		return toDecimal(raw)
	case KindBoolean:
		return toBoolean(raw)
	case KindDate:
		return toDate(raw)
	case KindStringList:
		return toStringList(raw)
	}
	return nil, fmt.Errorf("unknown kind %d", kind)
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []any, []string, map[string]any, bool:
		return "", errUnsupported
	}
	return cast.ToStringE(raw)
}

func toInteger(raw any) (int64, error) {
	switch v := raw.(type) {
	case bool:
		return 0, errUnsupported
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case json.Number:
		return v.Int64()
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, errUnsupported
		}
		return int64(v), nil
	case float32:
		return toInteger(float64(v))
	}
	return cast.ToInt64E(raw)
}

func toDecimal(raw any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case bool:
		return 0, errUnsupported
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	case json.Number:
		f, err = v.Float64()
	default:
		f, err = cast.ToFloat64E(raw)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errUnsupported
	}
	return f, nil
}

func toBoolean(raw any) (bool, error) {
	if s, ok := raw.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "yes":
			return true, nil
		case "off", "no":
			return false, nil
		}
		return cast.ToBoolE(strings.TrimSpace(s))
	}
	if f, ok := raw.(float64); ok && f != 0 && f != 1 {
		return false, errUnsupported
	}
	return cast.ToBoolE(raw)
}

func toDate(raw any) (time.Time, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if t, err := time.Parse(dateLayout, s); err == nil {
			return t, nil
		}
		t, err := cast.ToTimeE(s)
		if err != nil {
			return time.Time{}, err
		}
		return truncateDay(t), nil
	}
	if _, ok := raw.(time.Time); !ok {
		return time.Time{}, errUnsupported
	}
	return truncateDay(raw.(time.Time)), nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toStringList(raw any) (string, error) {
	var items []string
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case []string:
		items = v
	case []any:
		items = make([]string, 0, len(v))
		for _, item := range v {
			s, err := toString(item)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
	default:
		return "", errUnsupported
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, ", "), nil
}
