// Package cli implements the cloudgate command line: the interactive
// onboarding wizard and a few read-only helpers.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arencloud/cloudgate/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "cloudgate",
	Short: "Multi-cloud onboarding",
	Long: `cloudgate walks a new account through signup and connecting its
cloud providers (AWS, Azure, Google Cloud and Oracle Cloud).

Run 'cloudgate onboard' for the interactive wizard or the server binary
for the HTTP API.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "cloudgate %s\n", version.Version)
		return err
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("cloudgate %s\n", version.Version))
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(onboardCmd)
}
