// Package cmd provides the root command and CLI setup for scanmirror.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	"github.com/kazie/pylint-pycharm/internal/controller"
	"github.com/kazie/pylint-pycharm/internal/domain"
)

var fsAdapter adapter.SourceFSAdapter
var slotLocker adapter.SlotLocker
var snapshotStore adapter.SnapshotStore
var registry *domain.Registry
var sweeper domain.Sweeper

// workflowFactory builds the workflow for a command invocation, after flags
// and configuration have been resolved.
var workflowFactory = buildWorkflow

var (
	snapshotFlag string
	rootFlag     string
	tempDirFlag  string
	excludeFlag  []string
	parallelFlag int
	verboseFlag  bool
	logFileFlag  string
)

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	slotLocker = adapter.NewFlockSlotLocker()
	snapshotStore = adapter.NewYAMLSnapshotStore(fsAdapter)
	registry = domain.DefaultRegistry
	sweeper = domain.NewSweeper(fsAdapter, slotLocker)
}

const pathPatternsHelp = `Documents can be selected with glob patterns relative to the project root:
  - pkg            everything under pkg
  - **/*_test.py   every test module
  - pkg mod.py     several patterns at once`

const rootLongDescription = `scanmirror materializes documents open in an editor (including unsaved and
memory-only ones) as real files so a command-line analysis tool such as pylint
can read exactly what the editor holds.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scanmirror",
		Short: "Materialize editor documents for external analysis tools",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVarP(&snapshotFlag, snapshotFlagName, "s", viper.GetString(snapshotConfigKey), "editor snapshot (YAML) describing open documents")
	bindFlagToConfig(flags.Lookup(snapshotFlagName), snapshotConfigKey)

	flags.StringVarP(&rootFlag, rootFlagName, "r", viper.GetString(projectRootKey), "project root (default: current directory)")
	bindFlagToConfig(flags.Lookup(rootFlagName), projectRootKey)

	flags.StringVar(&tempDirFlag, tempDirFlagName, viper.GetString(tempDirConfigKey), "directory receiving temporary copies (default: system temp)")
	bindFlagToConfig(flags.Lookup(tempDirFlagName), tempDirConfigKey)

	flags.StringArrayVarP(&excludeFlag, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude documents matching glob (can be repeated)")
	bindFlagToConfig(flags.Lookup(excludeFlagName), excludeConfigKey)

	flags.IntVarP(&parallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of documents materialized in parallel")
	bindFlagToConfig(flags.Lookup(parallelFlagName), parallelConfigKey)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
	flags.StringVar(&logFileFlag, logFileFlagName, "", "log file (default from config)")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

func buildWorkflow(cmd *cobra.Command) domain.Workflow {
	materializer := domain.NewMaterializer(fsAdapter, slotLocker,
		domain.WithTempBase(tempBase()),
		domain.WithRegistry(registry),
	)
	tool := adapter.NewLocalToolRunnerAdapter(viper.GetString(toolCommandKey), toolTimeout())
	ui := controller.NewUI(cmd, controller.IsTTY(os.Stdout))

	return domain.NewWorkflow(fsAdapter, snapshotStore, tool, ui, materializer, sweeper)
}

// workspaceArgs collects the document selection shared by every command.
func workspaceArgs(patterns []string) (domain.WorkspaceArgs, error) {
	project, err := projectDefaults()
	if err != nil {
		return domain.WorkspaceArgs{}, fmt.Errorf("resolve project: %w", err)
	}

	return domain.WorkspaceArgs{
		Snapshot:   snapshotPath(),
		Project:    project,
		Include:    patterns,
		Exclude:    viper.GetStringSlice(excludeConfigKey),
		Extensions: viper.GetStringSlice(extensionsConfigKey),
		Parallel:   viper.GetInt(parallelConfigKey),
	}, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Temporary files still registered when the command returns (for example after
// an interrupt) are released before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()
	registry.ReleaseAll(context.Background())

	if err != nil {
		os.Exit(1)
	}
}
