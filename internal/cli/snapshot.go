package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/depprop/pkg/inspector"
	"github.com/mesh-intelligence/depprop/pkg/snapshot"
)

// withStore attaches a snapshot store for the duration of fn.
func (a *app) withStore(fn func(snapshot.Store) error) (err error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return err
	}
	store := inspector.NewStore(a.logger)
	if err := store.Attach(cfg); err != nil {
		return fmt.Errorf("attach snapshot store: %w", err)
	}
	defer func() {
		if derr := store.Detach(); err == nil && derr != nil {
			err = fmt.Errorf("detach snapshot store: %w", derr)
		}
	}()
	return fn(store)
}

func (a *app) newSnapshotCmd() *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and save a snapshot of the sample element tree",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.catalog.SampleTree()
			if err != nil {
				return fmt.Errorf("build sample tree: %w", err)
			}
			snap := inspector.Capture("", &root.Object)
			snap.Label = label

			return a.withStore(func(s snapshot.Store) error {
				if _, err := s.SaveSnapshot(snap); err != nil {
					return err
				}
				sum := snap.Summary()
				return a.render(cmd.OutOrStdout(), sum, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s (%d objects, %d values)\n",
						sum.SnapshotID, sum.ObjectCount, sum.ValueCount)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "label stored with the snapshot")
	return cmd
}

func (a *app) newSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List saved snapshots, oldest first",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s snapshot.Store) error {
				list, err := s.ListSnapshots()
				if err != nil {
					return err
				}
				if list == nil {
					list = []snapshot.Summary{}
				}
				return a.render(cmd.OutOrStdout(), list, func(w io.Writer) error {
					rows := make([][]string, 0, len(list))
					for _, sum := range list {
						rows = append(rows, []string{
							sum.SnapshotID,
							sum.TakenAt.Local().Format(time.DateTime),
							strconv.Itoa(sum.ObjectCount),
							strconv.Itoa(sum.ValueCount),
							sum.Label,
						})
					}
					return table(w, []string{"ID", "TAKEN", "OBJECTS", "VALUES", "LABEL"}, rows)
				})
			})
		},
	}
}

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <snapshot-id>",
		Short: "Show the values recorded in a snapshot",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s snapshot.Store) error {
				snap, err := s.GetSnapshot(args[0])
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), snap, func(w io.Writer) error {
					return showText(w, snap)
				})
			})
		},
	}
}

func showText(w io.Writer, snap *snapshot.Snapshot) error {
	fmt.Fprintf(w, "snapshot %s taken %s", snap.SnapshotID, snap.TakenAt.Local().Format(time.DateTime))
	if snap.Label != "" {
		fmt.Fprintf(w, " (%s)", snap.Label)
	}
	fmt.Fprintln(w)

	for _, o := range snap.Objects {
		fmt.Fprintf(w, "\n%s %s", o.TypeName, o.ObjectID)
		if o.ParentID != "" {
			fmt.Fprintf(w, " parent %s", o.ParentID)
		}
		fmt.Fprintln(w)

		rows := make([][]string, 0, len(o.Values))
		for _, v := range o.Values {
			rows = append(rows, []string{"  " + v.Owner + "." + v.Property, string(v.Value), v.Priority, v.Description})
		}
		if err := table(w, []string{"  PROPERTY", "VALUE", "PRIORITY", "SOURCE"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <snapshot-id>",
		Short: "Delete a saved snapshot",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s snapshot.Store) error {
				if err := s.DeleteSnapshot(args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return err
			})
		},
	}
}
