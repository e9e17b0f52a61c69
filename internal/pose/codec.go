package pose

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// FormatVersion is the current `.pose` schema version. Bump it whenever the
// encoding changes and teach Unmarshal to migrate the older layout.
const FormatVersion = 1

// FileExtension is the canonical pose file suffix.
const FileExtension = ".pose"

const (
	keyControls = "controls"
	keyVersion  = "version"
)

// document field order keeps the top-level keys sorted in the output.
type document struct {
	Controls map[string]any `json:"controls"`
	Version  int            `json:"version"`
}

// Marshal encodes a snapshot as deterministic, key-sorted JSON. The whole
// snapshot is validated first; nothing is returned on failure.
func Marshal(s *Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	doc := document{Controls: make(map[string]any, s.Len()), Version: FormatVersion}
	s.Each(func(name string, v Value) bool {
		switch v.Kind() {
		case KindMatrix:
			m, _ := v.Matrix()
			doc.Controls[name] = m[:]
		case KindAttributes:
			doc.Controls[name] = v.Attributes()
		}
		return true
	})

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal pose: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a pose document. Both the versioned envelope and the
// legacy bare control mapping are accepted. Any structural problem fails the
// whole decode.
func Unmarshal(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var top any
	if err := dec.Decode(&top); err != nil {
		return nil, invalid("", "decode: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, invalid("", "unexpected data after top-level mapping")
	}

	return FromMapping(top)
}

// FromMapping validates a generic decoded mapping (for example from another
// encoder or a caller assembling a pose by hand) and converts it to a
// Snapshot. It applies exactly the structural rules Unmarshal does.
func FromMapping(raw any) (*Snapshot, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, invalid("", "top level must be a mapping, got %s", describe(raw))
	}

	controls, err := unwrapEnvelope(obj)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(controls))
	for name := range controls {
		names = append(names, name)
	}
	sort.Strings(names)

	b := NewBuilder("")
	for _, name := range names {
		v, err := decodeValue(name, controls[name])
		if err != nil {
			return nil, err
		}
		if err := b.Set(name, v); err != nil {
			return nil, err
		}
	}

	snap := b.Build()
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func unwrapEnvelope(obj map[string]any) (map[string]any, error) {
	rawVersion, hasVersion := obj[keyVersion]
	if !hasVersion || !isNumeric(rawVersion) {
		return obj, nil
	}

	f, err := decodeNumber(rawVersion, false)
	if err != nil || f != float64(int(f)) {
		return nil, invalid("", "version %v is not an integer", rawVersion)
	}
	version := int(f)
	if version < 1 || version > FormatVersion {
		return nil, invalid("", "unsupported format version %d (newest known is %d)", version, FormatVersion)
	}
	if len(obj) != 2 {
		return nil, invalid("", "versioned document must contain only %q and %q", keyControls, keyVersion)
	}
	controls, ok := obj[keyControls].(map[string]any)
	if !ok {
		return nil, invalid("", "%q must be a mapping, got %s", keyControls, describe(obj[keyControls]))
	}
	return controls, nil
}

func decodeValue(control string, raw any) (Value, error) {
	switch typed := raw.(type) {
	case []float64:
		if len(typed) != MatrixSize {
			return Value{}, invalid(control, "matrix must have %d elements, got %d", MatrixSize, len(typed))
		}
		var m [MatrixSize]float64
		copy(m[:], typed)
		return MatrixValue(m), nil
	case map[string]float64:
		return AttributeValue(typed), nil
	case []any:
		if len(typed) != MatrixSize {
			return Value{}, invalid(control, "matrix must have %d elements, got %d", MatrixSize, len(typed))
		}
		var m [MatrixSize]float64
		for i, elem := range typed {
			f, err := decodeNumber(elem, false)
			if err != nil {
				return Value{}, invalid(control, "matrix element %d: %v", i, err)
			}
			m[i] = f
		}
		return MatrixValue(m), nil
	case map[string]any:
		attrs := make(map[string]float64, len(typed))
		for name, elem := range typed {
			f, err := decodeNumber(elem, true)
			if err != nil {
				return Value{}, invalid(control, "attribute %q: %v", name, err)
			}
			attrs[name] = f
		}
		return AttributeValue(attrs), nil
	default:
		return Value{}, invalid(control, "value must be a mapping or a sequence of numbers, got %s", describe(raw))
	}
}

func decodeNumber(raw any, allowBool bool) (float64, error) {
	switch typed := raw.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(typed.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", typed.String(), err)
		}
		return f, nil
	case float64:
		return typed, nil
	case int:
		return float64(typed), nil
	case bool:
		if !allowBool {
			return 0, errors.New("expected number, got boolean")
		}
		if typed {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expected number, got %s", describe(raw))
	}
}

func isNumeric(raw any) bool {
	switch raw.(type) {
	case json.Number, float64, int:
		return true
	default:
		return false
	}
}

func describe(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int:
		return "number"
	case []any, []float64:
		return "sequence"
	case map[string]any, map[string]float64:
		return "mapping"
	default:
		return fmt.Sprintf("%T", raw)
	}
}
