package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arencloud/cloudgate/internal/catalog"
)

var providersJSON bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the supported cloud providers",
	Args:  cobra.NoArgs,
	RunE:  runProviders,
}

func init() {
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "print the catalog as JSON")
}

func runProviders(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if providersJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog.All())
	}
	for _, d := range catalog.All() {
		fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(d.Name), mutedStyle.Render(d.Kind.String()))
		fmt.Fprintf(out, "  %s\n", d.Description)
		if d.RegionMode != catalog.RegionsNone {
			fmt.Fprintf(out, "  regions (%s): %s\n", d.RegionMode, strings.Join(d.Regions, ", "))
		}
		keys := make([]string, 0, len(d.Fields))
		for _, f := range d.Fields {
			keys = append(keys, f.Key)
		}
		fmt.Fprintf(out, "  fields: %s\n\n", strings.Join(keys, ", "))
	}
	return nil
}
