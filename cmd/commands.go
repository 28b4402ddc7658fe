package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kazie/pylint-pycharm/internal/domain"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

const materializeLongDescription = `Materialize the selected documents and print where each one can be read.
Clean documents saved on disk are used in place; unsaved and memory-only
documents are copied to a temporary tree that mirrors the project layout.

` + pathPatternsHelp

const scanLongDescription = `Materialize the selected documents, run the analysis tool on them from the
project root and remove every temporary copy afterwards.

` + pathPatternsHelp

const statusLongDescription = `Show open documents whose content differs from disk, with a diff of what the
analysis tool would read instead of the saved file.

` + pathPatternsHelp

var keepFlag bool
var toolArgsFlag []string
var minAgeFlag int64

var materializeCmd = newMaterializeCmd()
var scanCmd = newScanCmd()
var statusCmd = newStatusCmd()
var sweepCmd = newSweepCmd()

func newMaterializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materialize [patterns...]",
		Short: "Materialize documents as real files",
		Long:  materializeLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			wsArgs, err := workspaceArgs(args)
			if err != nil {
				return err
			}

			return workflowFactory(cmd).Materialize(cmd.Context(), domain.MaterializeArgs{
				WorkspaceArgs: wsArgs,
				Keep:          keepFlag,
			})
		},
	}

	cmd.Flags().BoolVar(&keepFlag, keepFlagName, false, "keep temporary copies instead of removing them")

	return cmd
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [patterns...]",
		Short: "Run the analysis tool on materialized documents",
		Long:  scanLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			wsArgs, err := workspaceArgs(args)
			if err != nil {
				return err
			}

			return workflowFactory(cmd).Scan(cmd.Context(), domain.ScanArgs{
				WorkspaceArgs: wsArgs,
				ToolArgs:      viper.GetStringSlice(toolArgsKey),
			})
		},
	}

	cmd.Flags().StringArrayVar(&toolArgsFlag, "tool-arg", viper.GetStringSlice(toolArgsKey), "argument passed to the analysis tool (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup("tool-arg"), toolArgsKey)

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [patterns...]",
		Short: "Show documents that differ from disk",
		Long:  statusLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			wsArgs, err := workspaceArgs(args)
			if err != nil {
				return err
			}

			return workflowFactory(cmd).Status(cmd.Context(), domain.StatusArgs{WorkspaceArgs: wsArgs})
		},
	}
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove temporary trees left behind by crashed runs",
		Long: `Remove csi-NNN directories in the temporary directory whose owning process
is gone. Directories younger than --min-age are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflowFactory(cmd).Sweep(cmd.Context(), domain.SweepArgs{
				TempBase: tempBase(),
				MinAge:   sweepMinAge(),
			})
		},
	}

	cmd.Flags().Int64Var(&minAgeFlag, minAgeFlagName, viper.GetInt64(sweepMinAgeKey), "minimum age in seconds of a directory to sweep")
	bindFlagToConfig(cmd.Flags().Lookup(minAgeFlagName), sweepMinAgeKey)

	return cmd
}

func snapshotPath() m.Path {
	return m.Path(viper.GetString(snapshotConfigKey))
}

func init() {
	rootCmd.AddCommand(materializeCmd, scanCmd, statusCmd, sweepCmd)
}
