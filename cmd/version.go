package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/kazie/pylint-pycharm/internal/domain"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the scanmirror build version, the Go version and the reserved temporary directory prefix.",
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok || info.Main.Version == "" {
				cmd.Println("version: unknown")
				return
			}

			cmd.Println("scanmirror version\t", info.Main.Version)
			cmd.Println("go version\t", info.GoVersion)
			cmd.Println("temp prefix\t", domain.ReservedPrefix)
		},
	}
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
