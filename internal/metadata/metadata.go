package metadata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Target says what a meta file describes.
type Target string

const (
	// TargetContains files describe the directory they live in.
	TargetContains Target = "contains"
	// TargetSiblings files describe the entries next to them.
	TargetSiblings Target = "siblings"
)

func ParseTarget(value string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "contains", "self":
		return TargetContains, nil
	case "siblings", "item":
		return TargetSiblings, nil
	default:
		return "", fmt.Errorf("unknown meta target %q (want contains|siblings)", value)
	}
}

type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindSequence
	KindMapping
)

// Value is a metadata value: null, a string, a sequence or a mapping.
type Value struct {
	Kind     ValueKind
	Str      string
	Sequence []Value
	Mapping  map[string]Value
}

func Null() Value { return Value{Kind: KindNull} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Sequence(items ...Value) Value { return Value{Kind: KindSequence, Sequence: items} }
func Mapping(fields map[string]Value) Value { return Value{Kind: KindMapping, Mapping: fields} }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindSequence:
		items := v.Sequence
		if items == nil {
			items = []Value{}
		}
		return json.Marshal(items)
	case KindMapping:
		fields := v.Mapping
		if fields == nil {
			fields = map[string]Value{}
		}
		return json.Marshal(fields)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := fromJSON(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func fromJSON(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool, float64:
		return String(fmt.Sprint(t)), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			v, err := fromJSON(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Sequence(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for key, item := range t {
			v, err := fromJSON(item)
			if err != nil {
				return Value{}, err
			}
			fields[key] = v
		}
		return Mapping(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported metadata value %T", raw)
	}
}

// Metadata is one record: field name to value.
type Metadata map[string]Value

// Listing maps a normalized path to its metadata.
type Listing map[string]Metadata

// Paths returns the listing's paths in sorted order.
func (l Listing) Paths() []string {
	paths := make([]string, 0, len(l))
	for path := range l {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Merge copies src's fields into dst, overwriting existing fields, and
// returns dst. A nil dst is allocated.
func Merge(dst, src Metadata) Metadata {
	if dst == nil {
		dst = make(Metadata, len(src))
	}
	for field, value := range src {
		dst[field] = value
	}
	return dst
}
