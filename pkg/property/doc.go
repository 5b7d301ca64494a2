// Package property implements a dependency-property engine: typed, overridable,
// inheritable and bindable properties on objects, with per-type metadata merged
// down an explicit type hierarchy, change notification, value coercion and
// validation, and a registry answering which properties exist on which types.
//
// A Registry owns the type hierarchy (Type), the property identities (Property)
// and their metadata (Metadata). Objects embed Object, call Init with their Type,
// and then read and write values through GetValue, SetValue and Bind.
//
//	var (
//		LabelType = property.MustType(property.NewType("Label", nil))
//		TextProperty = property.Must(property.RegisterStyled(
//			"Text", LabelType, property.TypeOf[string](),
//			property.NewMetadata(property.WithDefault(""))))
//	)
//
//	type Label struct{ property.Object }
//
//	l := &Label{}
//	if err := l.Init(LabelType, l); err != nil {
//		return err
//	}
//	return l.SetValue(TextProperty, "hello")
//
// Registration is expected to happen during package initialization. Registry
// mutations are serialized; reads are safe to run concurrently. Per-object
// storage is not locked and belongs to a single goroutine, the usual UI-thread
// affinity model.
package property
