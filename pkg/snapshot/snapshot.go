package snapshot

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is a point-in-time capture of property values.
type Snapshot struct {
	SnapshotID string         `json:"snapshot_id" yaml:"snapshot_id"`
	Label      string         `json:"label,omitempty" yaml:"label,omitempty"`
	TakenAt    time.Time      `json:"taken_at" yaml:"taken_at"`
	Objects    []ObjectRecord `json:"objects" yaml:"objects"`
}

// ObjectRecord holds the captured values of one object. ParentID is the id of
// the object's inheritance parent, or empty for a root.
type ObjectRecord struct {
	ObjectID string        `json:"object_id" yaml:"object_id"`
	TypeName string        `json:"type_name" yaml:"type_name"`
	ParentID string        `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Values   []ValueRecord `json:"values" yaml:"values"`
}

// ValueRecord is the diagnostic of one property on one object. Value holds
// the JSON encoding of the effective value; values that cannot be encoded are
// stored as a JSON string of their formatted form.
type ValueRecord struct {
	Property    string          `json:"property" yaml:"property"`
	Owner       string          `json:"owner" yaml:"owner"`
	Value       json.RawMessage `json:"value" yaml:"value"`
	Priority    string          `json:"priority" yaml:"priority"`
	Description string          `json:"description" yaml:"description"`
}

// MarshalYAML renders Value as the decoded JSON value rather than raw bytes.
func (v ValueRecord) MarshalYAML() (any, error) {
	var decoded any
	if len(v.Value) > 0 {
		if err := json.Unmarshal(v.Value, &decoded); err != nil {
			return nil, fmt.Errorf("decoding value of %s: %w", v.Property, err)
		}
	}
	return struct {
		Property    string `yaml:"property"`
		Owner       string `yaml:"owner"`
		Value       any    `yaml:"value"`
		Priority    string `yaml:"priority"`
		Description string `yaml:"description"`
	}{v.Property, v.Owner, decoded, v.Priority, v.Description}, nil
}

// Summary describes a stored snapshot without its records.
type Summary struct {
	SnapshotID  string    `json:"snapshot_id" yaml:"snapshot_id"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	TakenAt     time.Time `json:"taken_at" yaml:"taken_at"`
	ObjectCount int       `json:"object_count" yaml:"object_count"`
	ValueCount  int       `json:"value_count" yaml:"value_count"`
}

// Validate checks that every object has an id and a type name and that
// object ids are unique within the snapshot.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	seen := make(map[string]bool, len(s.Objects))
	for i, o := range s.Objects {
		if o.ObjectID == "" {
			return fmt.Errorf("%w: object %d has no id", ErrInvalidSnapshot, i)
		}
		if o.TypeName == "" {
			return fmt.Errorf("%w: object %s has no type name", ErrInvalidSnapshot, o.ObjectID)
		}
		if seen[o.ObjectID] {
			return fmt.Errorf("%w: duplicate object %s", ErrInvalidSnapshot, o.ObjectID)
		}
		seen[o.ObjectID] = true
		for _, v := range o.Values {
			if v.Property == "" {
				return fmt.Errorf("%w: object %s has a value without a property", ErrInvalidSnapshot, o.ObjectID)
			}
		}
	}
	return nil
}

// Summary returns the summary of s.
func (s *Snapshot) Summary() Summary {
	sum := Summary{
		SnapshotID:  s.SnapshotID,
		Label:       s.Label,
		TakenAt:     s.TakenAt,
		ObjectCount: len(s.Objects),
	}
	for _, o := range s.Objects {
		sum.ValueCount += len(o.Values)
	}
	return sum
}

// Object returns the record for the given object id.
func (s *Snapshot) Object(id string) (ObjectRecord, bool) {
	for _, o := range s.Objects {
		if o.ObjectID == id {
			return o, true
		}
	}
	return ObjectRecord{}, false
}

// Value returns the record for the named property ("Owner.Name" or a bare
// name) on the object.
func (o ObjectRecord) Value(property string) (ValueRecord, bool) {
	for _, v := range o.Values {
		if v.Property == property || v.Owner+"."+v.Property == property {
			return v, true
		}
	}
	return ValueRecord{}, false
}
