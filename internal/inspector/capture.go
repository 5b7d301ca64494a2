package inspector

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/mesh-intelligence/depprop/pkg/property"
	"github.com/mesh-intelligence/depprop/pkg/snapshot"
)

// Capture builds a snapshot of the given objects and all of their inheritance
// descendants. Each object gets one value record per property with a stored
// value or binding, plus one per inheritable property whose value currently
// comes from an ancestor. Objects appear parent before child; an object
// reachable from several roots is recorded once.
func Capture(id string, roots ...*property.Object) *snapshot.Snapshot {
	snap := &snapshot.Snapshot{SnapshotID: id, TakenAt: time.Now().UTC()}
	seen := make(map[*property.Object]bool)

	var walk func(o *property.Object)
	walk = func(o *property.Object) {
		if o == nil || o.Type() == nil || seen[o] {
			return
		}
		seen[o] = true
		snap.Objects = append(snap.Objects, captureObject(o))
		for _, child := range o.InheritanceChildren() {
			walk(child)
		}
	}
	for _, o := range roots {
		walk(o)
	}
	return snap
}

func captureObject(o *property.Object) snapshot.ObjectRecord {
	rec := snapshot.ObjectRecord{
		ObjectID: o.ID().String(),
		TypeName: o.Type().Name(),
	}
	if parent := o.InheritanceParent(); parent != nil {
		rec.ParentID = parent.ID().String()
	}

	diags := o.Diagnostics()
	have := make(map[*property.Property]bool, len(diags))
	for _, d := range diags {
		have[d.Property] = true
	}
	reg := o.Registry()
	candidates := append(reg.GetRegistered(o.Type()), reg.GetRegisteredAttached(o.Type())...)
	for _, p := range candidates {
		if !p.Inherits() || have[p] {
			continue
		}
		if d := o.GetDiagnostic(p); d.Priority == property.PriorityInherited {
			diags = append(diags, d)
		}
	}
	slices.SortFunc(diags, func(a, b property.Diagnostic) int {
		return a.Property.Index() - b.Property.Index()
	})

	rec.Values = make([]snapshot.ValueRecord, 0, len(diags))
	for _, d := range diags {
		rec.Values = append(rec.Values, snapshot.ValueRecord{
			Property:    d.Property.Name(),
			Owner:       d.Property.Owner().Name(),
			Value:       encodeValue(d.Value),
			Priority:    d.Priority.String(),
			Description: d.Description,
		})
	}
	return rec
}

// encodeValue returns the JSON form of v, or the JSON string of its
// formatted form when v has no JSON encoding.
func encodeValue(v any) json.RawMessage {
	if b, err := json.Marshal(v); err == nil {
		return b
	}
	b, _ := json.Marshal(fmt.Sprint(v))
	return b
}
