package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/depprop/pkg/property"
)

type typeView struct {
	Name string `json:"name" yaml:"name"`
	Base string `json:"base,omitempty" yaml:"base,omitempty"`
}

type propertyView struct {
	Index     int    `json:"index" yaml:"index"`
	Name      string `json:"name" yaml:"name"`
	Owner     string `json:"owner" yaml:"owner"`
	ValueType string `json:"value_type" yaml:"value_type"`
	Default   any    `json:"default" yaml:"default"`
	Inherits  bool   `json:"inherits" yaml:"inherits"`
	ReadOnly  bool   `json:"read_only" yaml:"read_only"`
	Attached  bool   `json:"attached" yaml:"attached"`
	Direct    bool   `json:"direct" yaml:"direct"`
}

func newPropertyView(p *property.Property, t *property.Type) propertyView {
	return propertyView{
		Index:     p.Index(),
		Name:      p.Name(),
		Owner:     p.Owner().Name(),
		ValueType: p.ValueType().String(),
		Default:   p.DefaultValue(t),
		Inherits:  p.Inherits(),
		ReadOnly:  p.IsReadOnly(),
		Attached:  p.IsAttached(),
		Direct:    p.IsDirect(),
	}
}

func (v propertyView) kinds() string {
	var k []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{v.Inherits, "inherits"},
		{v.ReadOnly, "read-only"},
		{v.Attached, "attached"},
		{v.Direct, "direct"},
	} {
		if f.on {
			k = append(k, f.name)
		}
	}
	if len(k) == 0 {
		return "-"
	}
	return strings.Join(k, ",")
}

func propertyTable(w io.Writer, views []propertyView) error {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			strconv.Itoa(v.Index), v.Owner + "." + v.Name, v.ValueType, fmt.Sprintf("%v", v.Default), v.kinds(),
		})
	}
	return table(w, []string{"INDEX", "PROPERTY", "TYPE", "DEFAULT", "KIND"}, rows)
}

func (a *app) newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered types and their bases",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var views []typeView
			for _, t := range a.catalog.Registry.Types() {
				v := typeView{Name: t.Name()}
				if t.Base() != nil {
					v.Base = t.Base().Name()
				}
				views = append(views, v)
			}
			return a.render(cmd.OutOrStdout(), views, func(w io.Writer) error {
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					base := v.Base
					if base == "" {
						base = "-"
					}
					rows = append(rows, []string{v.Name, base})
				}
				return table(w, []string{"TYPE", "BASE"}, rows)
			})
		},
	}
}

func (a *app) newRegisteredCmd() *cobra.Command {
	var attached bool
	cmd := &cobra.Command{
		Use:   "registered <type>",
		Short: "List the properties registered on a type and its bases",
		Long: "List the properties registered on a type and its bases, most derived\n" +
			"type first. With --attached, list the attached properties usable on it.",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.findType(args[0])
			if err != nil {
				return err
			}
			props := a.catalog.Registry.GetRegistered(t)
			if attached {
				props = a.catalog.Registry.GetRegisteredAttached(t)
			}
			views := make([]propertyView, 0, len(props))
			for _, p := range props {
				views = append(views, newPropertyView(p, t))
			}
			return a.render(cmd.OutOrStdout(), views, func(w io.Writer) error {
				return propertyTable(w, views)
			})
		},
	}
	cmd.Flags().BoolVar(&attached, "attached", false, "list attached properties instead")
	return cmd
}

func (a *app) newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <type> <name>",
		Short: "Resolve a property by name on a type",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.findType(args[0])
			if err != nil {
				return err
			}
			p, err := a.catalog.Registry.FindRegistered(t, args[1])
			if err != nil {
				return err
			}
			view := newPropertyView(p, t)
			return a.render(cmd.OutOrStdout(), view, func(w io.Writer) error {
				return propertyTable(w, []propertyView{view})
			})
		},
	}
}

type metadataView struct {
	Property         string   `json:"property" yaml:"property"`
	Type             string   `json:"type" yaml:"type"`
	Default          any      `json:"default" yaml:"default"`
	DefaultAssigned  bool     `json:"default_assigned" yaml:"default_assigned"`
	OwnMetadata      bool     `json:"own_metadata" yaml:"own_metadata"`
	BindingMode      string   `json:"binding_mode" yaml:"binding_mode"`
	DataValidation   bool     `json:"data_validation" yaml:"data_validation"`
	Flags            []string `json:"flags" yaml:"flags"`
	ChangedCallbacks int      `json:"changed_callbacks" yaml:"changed_callbacks"`
	Coerce           bool     `json:"coerce" yaml:"coerce"`
	Validate         bool     `json:"validate" yaml:"validate"`
}

var flagNames = []struct {
	flag property.Flags
	name string
}{
	{property.AffectsMeasure, "AffectsMeasure"},
	{property.AffectsArrange, "AffectsArrange"},
	{property.AffectsParentMeasure, "AffectsParentMeasure"},
	{property.AffectsParentArrange, "AffectsParentArrange"},
	{property.InheritsFlag, "Inherits"},
	{property.BindsTwoWayByDefault, "BindsTwoWayByDefault"},
}

func (a *app) newMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <type> <property>",
		Short: "Show the effective metadata of a property for a type",
		Long: "Show the metadata of a property as seen by a type, after merging the\n" +
			"overrides of the type and its bases. The property may be qualified with\n" +
			"its owner (Grid.Row) and may be attached.",
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.findType(args[0])
			if err != nil {
				return err
			}
			p, err := a.lookupProperty(t, args[1])
			if err != nil {
				return err
			}

			md := p.GetMetadata(t)
			_, assigned := md.DefaultValue()
			view := metadataView{
				Property:         p.String(),
				Type:             t.Name(),
				Default:          p.DefaultValue(t),
				DefaultAssigned:  assigned,
				OwnMetadata:      p.HasOwnMetadata(t),
				BindingMode:      md.DefaultBindingMode().String(),
				DataValidation:   md.EnableDataValidation(),
				Flags:            []string{},
				ChangedCallbacks: len(md.ChangedCallbacks()),
				Coerce:           md.Coerce() != nil,
				Validate:         md.Validate() != nil,
			}
			for _, f := range flagNames {
				if md.Has(f.flag) {
					view.Flags = append(view.Flags, f.name)
				}
			}

			return a.render(cmd.OutOrStdout(), view, func(w io.Writer) error {
				flags := strings.Join(view.Flags, ", ")
				if flags == "" {
					flags = "-"
				}
				rows := [][]string{
					{"type", view.Type},
					{"default", fmt.Sprintf("%v", view.Default)},
					{"default assigned", strconv.FormatBool(view.DefaultAssigned)},
					{"own metadata", strconv.FormatBool(view.OwnMetadata)},
					{"binding mode", view.BindingMode},
					{"data validation", strconv.FormatBool(view.DataValidation)},
					{"flags", flags},
					{"changed callbacks", strconv.Itoa(view.ChangedCallbacks)},
					{"coerce", strconv.FormatBool(view.Coerce)},
					{"validate", strconv.FormatBool(view.Validate)},
				}
				return table(w, []string{view.Property, ""}, rows)
			})
		},
	}
}

// lookupProperty finds a registered or attached property usable on t by its
// bare name or by Owner.Name.
func (a *app) lookupProperty(t *property.Type, name string) (*property.Property, error) {
	r := a.catalog.Registry
	owner, bare := "", name
	if i := strings.LastIndex(name, "."); i >= 0 {
		owner, bare = name[:i], name[i+1:]
	}
	for _, p := range append(r.GetRegistered(t), r.GetRegisteredAttached(t)...) {
		if p.Name() == bare && (owner == "" || p.Owner().Name() == owner) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no property %q", property.ErrNotFound, t.Name(), name)
}
