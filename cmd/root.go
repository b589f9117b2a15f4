package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photocheck",
	Short: "Passport photo and document scan validation",
	Long: `photocheck scores passport photos and supporting document scans with
pixel heuristics. Run "photocheck serve" for the HTTP API or
"photocheck validate" to check local files.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
