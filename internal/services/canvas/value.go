package canvas

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vector3 is a point or vector value.
type Vector3 struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`
	Z float64 `json:"Z"`
}

// PlaneValue is a plane given by origin and normal.
type PlaneValue struct {
	Origin Vector3 `json:"Origin"`
	Normal Vector3 `json:"Normal"`
}

// normalizeValue checks raw against kind and returns its canonical form.
func normalizeValue(entry ComponentType, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if entry.Value == ValueNone {
		return "", fmt.Errorf("%w: component type %q does not take a value", ErrInvalidInput, entry.Type)
	}
	switch entry.Value {
	case ValueText:
		return raw, nil
	case ValueNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return "", fmt.Errorf("%w: %q is not a number", ErrInvalidInput, raw)
		}
		return strconv.FormatFloat(n, 'g', -1, 64), nil
	case ValueInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not an integer", ErrInvalidInput, raw)
		}
		return strconv.FormatInt(n, 10), nil
	case ValueBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a boolean", ErrInvalidInput, raw)
		}
		return strconv.FormatBool(b), nil
	case ValuePoint, ValueVector:
		var v Vector3
		if err := decodeStrict(value, &v); err != nil {
			return "", fmt.Errorf(`%w: %s value must be JSON like {"X":10,"Y":20,"Z":0}: %v`, ErrInvalidInput, entry.Type, err)
		}
		return encodeCanonical(v)
	case ValuePlane:
		var p PlaneValue
		if err := decodeStrict(value, &p); err != nil {
			return "", fmt.Errorf(`%w: plane value must be JSON like {"Origin":{"X":0,"Y":0,"Z":0},"Normal":{"X":0,"Y":0,"Z":1}}: %v`, ErrInvalidInput, err)
		}
		if p.Normal == (Vector3{}) {
			return "", fmt.Errorf("%w: plane normal must not be zero", ErrInvalidInput)
		}
		return encodeCanonical(p)
	case ValueColor:
		return normalizeColor(value)
	case ValueDomain:
		return normalizeDomain(value)
	default:
		return "", fmt.Errorf("%w: unknown value kind %q", ErrInvalidInput, entry.Value)
	}
}

func decodeStrict(value string, target any) error {
	if value == "" {
		return fmt.Errorf("empty value")
	}
	return json.Unmarshal([]byte(value), target)
}

func encodeCanonical(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(data), nil
}

// normalizeColor accepts "#rrggbb" or "r,g,b" and returns "r,g,b".
func normalizeColor(value string) (string, error) {
	invalid := fmt.Errorf(`%w: colour must be "#rrggbb" or "r,g,b"`, ErrInvalidInput)
	if hex, ok := strings.CutPrefix(value, "#"); ok {
		if len(hex) != 6 {
			return "", invalid
		}
		rgb, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return "", invalid
		}
		return fmt.Sprintf("%d,%d,%d", rgb>>16&0xff, rgb>>8&0xff, rgb&0xff), nil
	}
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return "", invalid
	}
	channels := make([]string, 0, 3)
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 255 {
			return "", invalid
		}
		channels = append(channels, strconv.Itoa(n))
	}
	return strings.Join(channels, ","), nil
}

// normalizeDomain accepts "a to b" or "a,b" and returns "a to b".
func normalizeDomain(value string) (string, error) {
	invalid := fmt.Errorf(`%w: domain must be "start to end" or "start,end"`, ErrInvalidInput)
	start, end, ok := strings.Cut(value, " to ")
	if !ok {
		start, end, ok = strings.Cut(value, ",")
	}
	if !ok {
		return "", invalid
	}
	a, errA := strconv.ParseFloat(strings.TrimSpace(start), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(end), 64)
	if errA != nil || errB != nil {
		return "", invalid
	}
	return strconv.FormatFloat(a, 'g', -1, 64) + " to " + strconv.FormatFloat(b, 'g', -1, 64), nil
}
