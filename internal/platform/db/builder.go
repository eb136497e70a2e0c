package db

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrUnknownField = errors.New("unknown or read-only field")
	ErrEmptyUpdate  = errors.New("no fields to update")
	ErrInvalidValue = errors.New("invalid field value")
)

// Kind is the column type a request value is converted to before binding.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDate
	KindUUID
)

// DateLayouts lists the accepted calendar formats, canonical first.
var DateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// ParseDate accepts any of DateLayouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidValue, s)
}

// Field describes one column a client may write or filter on. MaxLen bounds
// string values in characters; Min and Max bound numeric values. Zero or nil
// means unbounded.
type Field struct {
	Column  string
	Kind    Kind
	NotNull bool
	MaxLen  int
	Min     *float64
	Max     *float64
}

// Bound returns a pointer for Field.Min and Field.Max.
func Bound(v float64) *float64 { return &v }

// MaxMoney is the largest value a NUMERIC(10,2) column holds.
const MaxMoney = 99999999.99

func (f Field) check(v interface{}) error {
	var n float64
	switch v := v.(type) {
	case string:
		if f.MaxLen > 0 && utf8.RuneCountInString(v) > f.MaxLen {
			return fmt.Errorf("%w: longer than %d characters", ErrInvalidValue, f.MaxLen)
		}
		return nil
	case int64:
		n = float64(v)
	case float64:
		n = v
	default:
		return nil
	}
	if f.Min != nil && n < *f.Min {
		return fmt.Errorf("%w: must be at least %v", ErrInvalidValue, *f.Min)
	}
	if f.Max != nil && n > *f.Max {
		return fmt.Errorf("%w: must be at most %v", ErrInvalidValue, *f.Max)
	}
	return nil
}

// Columns is an allow-list keyed by the JSON / query parameter name.
type Columns map[string]Field

// Resolve maps request keys to columns and converts their values. Any key
// outside the allow-list rejects the whole input.
func (c Columns) Resolve(input map[string]interface{}) (map[string]interface{}, error) {
	if len(input) == 0 {
		return nil, ErrEmptyUpdate
	}
	out := make(map[string]interface{}, len(input))
	for key, raw := range input {
		f, ok := c[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
		v, err := convert(f.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if v == nil && f.NotNull {
			return nil, fmt.Errorf("%s: %w: cannot be null", key, ErrInvalidValue)
		}
		if err := f.check(v); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[f.Column] = v
	}
	return out, nil
}

// Where builds " AND col = $n" conditions for every query parameter in the
// allow-list. Parameters outside it are ignored. Placeholders start at next.
func (c Columns) Where(params map[string]string, next int) (string, []interface{}, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		if _, ok := c[k]; ok && params[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	args := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		f := c[k]
		v, err := convert(f.Kind, params[k])
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", k, err)
		}
		fmt.Fprintf(&sb, " AND %s = $%d", f.Column, next)
		args = append(args, v)
		next++
	}
	return sb.String(), args, nil
}

// BuildUpdate renders an UPDATE for already-resolved column values. Column
// names come only from Columns allow-lists, never from request input.
func BuildUpdate(table string, set map[string]interface{}, idColumn string, id interface{}) (string, []interface{}, error) {
	if len(set) == 0 {
		return "", nil, ErrEmptyUpdate
	}
	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols)+1)
	args := make([]interface{}, 0, len(cols)+1)
	for i, col := range cols {
		parts = append(parts, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, set[col])
	}
	parts = append(parts, "updated_at = NOW()")
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", table, strings.Join(parts, ", "), idColumn, len(args))
	return sql, args, nil
}

func convert(kind Kind, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	switch kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected string", ErrInvalidValue)
		}
		return strings.TrimSpace(s), nil
	case KindUUID:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected uuid string", ErrInvalidValue)
		}
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: expected uuid", ErrInvalidValue)
		}
		return id, nil
	case KindInt:
		switch v := raw.(type) {
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("%w: expected integer", ErrInvalidValue)
			}
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: expected integer", ErrInvalidValue)
			}
			return n, nil
		}
	case KindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: expected number", ErrInvalidValue)
			}
			return f, nil
		}
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case float64:
			return v != 0, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("%w: expected boolean", ErrInvalidValue)
			}
			return b, nil
		}
	case KindDate:
		if s, ok := raw.(string); ok {
			return ParseDate(s)
		}
	}
	return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, raw)
}
