// Package cli implements the propctl command line interface: inspect the
// sample control catalog's registry and take, list and show snapshots of its
// sample element tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/depprop/internal/catalog"
	"github.com/mesh-intelligence/depprop/internal/logging"
	"github.com/mesh-intelligence/depprop/internal/paths"
	"github.com/mesh-intelligence/depprop/pkg/property"
	"github.com/mesh-intelligence/depprop/pkg/snapshot"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	format    string
	verbose   bool
}

// app carries the state shared by every subcommand. It is populated by the
// root command's PersistentPreRunE.
type app struct {
	flags     rootFlags
	configDir string
	config    *viper.Viper
	format    string
	logger    *zap.Logger
	catalog   *catalog.Catalog
}

// NewRootCmd creates the top-level "propctl" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "propctl",
		Short: "Inspect dependency properties and their snapshots",
		Long: "propctl inspects the property registry of the sample control catalog,\n" +
			"resolves properties by name, and captures, lists and shows snapshots\n" +
			"of the sample element tree's effective values.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $"+paths.EnvConfigDir+" or the platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "snapshot data directory (default: config data_dir, $"+paths.EnvDataDir+" or the platform data dir)")
	pf.StringVar(&a.flags.format, "format", "", "output format: text, json or yaml (default: config format or text)")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newTypesCmd(),
		a.newRegisteredCmd(),
		a.newFindCmd(),
		a.newMetadataCmd(),
		a.newSnapshotCmd(),
		a.newSnapshotsCmd(),
		a.newShowCmd(),
		a.newDeleteCmd(),
	)
	return root
}

// Execute runs the root command and exits with the matching exit code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:], os.Stderr))
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "propctl:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitCode maps an error to an exit code: lookups that found nothing and
// invalid input are the user's, everything else is the system's.
func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, property.ErrNotFound),
		errors.Is(err, property.ErrInvalidArgument),
		errors.Is(err, snapshot.ErrSnapshotNotFound):
		return exitUserError
	default:
		return exitSysError
	}
}

// usageError marks an error caused by bad command line input.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{msg: err.Error()}
		}
		return nil
	}
}

// setup resolves directories, loads config.yaml, builds the logger and
// registers the catalog on a fresh registry.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.configDir = configDir
	a.config = cfg

	a.format = a.flags.format
	if a.format == "" {
		a.format = cfg.GetString(cfgKeyFormat)
	}
	if !validFormat(a.format) {
		return usagef("unknown format %q (want text, json or yaml)", a.format)
	}

	logCfg := logging.Config{
		Level:       cfg.GetString(cfgKeyLogLevel),
		Development: cfg.GetBool(cfgKeyLogDevelopment),
	}
	if a.flags.verbose {
		logCfg.Level = "debug"
	}
	a.logger, err = logging.New(logCfg)
	if err != nil {
		return usagef("invalid %s in %s: %v", cfgKeyLogLevel, paths.ConfigFileName, err)
	}

	a.catalog, err = catalog.New(property.NewRegistry(property.WithLogger(a.logger)))
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}
	return nil
}

// dataDir returns the snapshot directory following the precedence
// --data-dir > config data_dir > DEPPROP_DATA_DIR > platform default.
func (a *app) dataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.config.GetString(cfgKeyDataDir))
}

// findType resolves a catalog type by name.
func (a *app) findType(name string) (*property.Type, error) {
	return a.catalog.Registry.FindType(name)
}
