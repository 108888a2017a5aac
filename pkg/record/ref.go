package record

import (
	"context"
	"fmt"
	"maps"
	"strconv"
)

// RefKind tells how a related object is represented in a record.
type RefKind int

const (
	// RefUnset is a null relation.
	RefUnset RefKind = iota
	// RefIdentifier is a bare id; resolving it costs one retrieve.
	RefIdentifier
	// RefEmbedded is an inlined object; resolving it is free.
	RefEmbedded
)

func (k RefKind) String() string {
	switch k {
	case RefUnset:
		return "unset"
	case RefIdentifier:
		return "identifier"
	case RefEmbedded:
		return "embedded"
	default:
		return fmt.Sprintf("RefKind(%d)", int(k))
	}
}

// Ref is a relation to another record, decided by the shape of the JSON
// value: null, a string id, or an embedded object.
type Ref struct {
	Kind   RefKind
	ID     string
	Fields map[string]any
}

// RefOf classifies a decoded JSON value.
func RefOf(v any) (Ref, error) {
	switch tv := v.(type) {
	case nil:
		return Ref{Kind: RefUnset}, nil
	case string:
		return Ref{Kind: RefIdentifier, ID: tv}, nil
	case float64:
		return Ref{Kind: RefIdentifier, ID: strconv.FormatFloat(tv, 'f', -1, 64)}, nil
	case map[string]any:
		return Ref{Kind: RefEmbedded, ID: idOf(tv), Fields: maps.Clone(tv)}, nil
	default:
		return Ref{}, fmt.Errorf("cannot use %T as a record reference", v)
	}
}

// IsSet reports whether the relation points at something.
func (r Ref) IsSet() bool {
	return r.Kind != RefUnset
}

// Resolve turns ref into a record: nil for RefUnset, a local record for
// RefEmbedded, and a retrieved record for RefIdentifier.
func (e *Endpoint) Resolve(ctx context.Context, ref Ref) (*Record, error) {
	switch ref.Kind {
	case RefUnset:
		return nil, nil
	case RefEmbedded:
		return e.FromFields(ref.Fields), nil
	case RefIdentifier:
		return e.Retrieve(ctx, ref.ID, nil)
	default:
		return nil, fmt.Errorf("unknown reference kind %v", ref.Kind)
	}
}

func idOf(fields map[string]any) string {
	switch id := fields["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
