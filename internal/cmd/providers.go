package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported storage providers",
	Long: `List the storage providers this build supports.

Examples:
  imaginestorage providers
  imaginestorage providers fields aws`,
	RunE: runProviders,
}

var providersFieldsCmd = &cobra.Command{
	Use:   "fields <provider>",
	Short: "Show credential fields for a provider",
	Long: `Show the credential fields a provider requires, including format
constraints and which fields are secret.

Examples:
  imaginestorage providers fields aws
  imaginestorage providers fields gcp --json`,
	Args: cobra.ExactArgs(1),
	RunE: runProviderFields,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersFieldsCmd)
	providersFieldsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runProviders(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tFIELDS")
	for _, meta := range provider.AllMetadata() {
		fmt.Fprintf(w, "%s\t%d\n", meta.Provider, len(meta.Fields))
	}
	return w.Flush()
}

func runProviderFields(cmd *cobra.Command, args []string) error {
	p := provider.ProviderType(args[0])
	meta, ok := provider.MetadataFor(p)
	if !ok {
		return fmt.Errorf("unknown provider %q", args[0])
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tREQUIRED\tSECRET\tDESCRIPTION")
	for _, f := range meta.Fields {
		fmt.Fprintf(w, "%s\t%t\t%t\t%s\n", f.Name, f.Required, f.Secret, f.Description)
	}
	return w.Flush()
}
