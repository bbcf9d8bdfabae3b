package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage per-user storage configurations",
}

var configSetProviderCmd = &cobra.Command{
	Use:   "set-provider <user-id> <provider>",
	Short: "Select a storage provider for a user",
	Long: `Select a storage provider for a user. Any previously active
configuration is retired, not deleted; switching back later starts a fresh
configuration.

Examples:
  imaginestorage config set-provider u-123 aws
  imaginestorage config set-provider u-123 gcp`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSetProvider,
}

var configSaveCredentialsCmd = &cobra.Command{
	Use:   "save-credentials <user-id>",
	Short: "Seal credentials into the user's active configuration",
	Long: `Read a credential JSON document and seal it into the user's active
configuration. The credentials stay encrypted at rest; saving resets the
validation state until the next validate run.

Examples:
  imaginestorage config save-credentials u-123 --file creds.json
  cat creds.json | imaginestorage config save-credentials u-123 --file -`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSaveCredentials,
}

var configShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a user's configurations",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <user-id>",
	Short: "Validate the user's stored credentials",
	Long: `Run the staged credential probes (bucket existence, probe write,
probe delete) against the user's stored active credentials and record the
outcome on the configuration.

Examples:
  imaginestorage config validate u-123
  imaginestorage config validate u-123 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetProviderCmd)
	configCmd.AddCommand(configSaveCredentialsCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configSaveCredentialsCmd.Flags().String("file", "", "Credential JSON file, or - for stdin")
	_ = configSaveCredentialsCmd.MarkFlagRequired("file")
	configValidateCmd.Flags().Bool("json", false, "Output the full validation result as JSON")
}

func runConfigSetProvider(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	cfg, err := e.service.SetProvider(ctx, args[0], provider.ProviderType(args[1]))
	if err != nil {
		return err
	}
	fmt.Printf("Active configuration %s created for provider %s\n", cfg.ID, cfg.Provider)
	return nil
}

func runConfigSaveCredentials(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	file, _ := cmd.Flags().GetString("file")

	raw, err := readInput(file)
	if err != nil {
		return err
	}
	creds, err := provider.ParseCredentials(string(raw))
	if err != nil {
		return err
	}

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.service.SaveCredentials(ctx, args[0], creds); err != nil {
		return err
	}
	fmt.Printf("Credentials saved (%s); run 'config validate %s' to verify them\n", creds.Redacted(), args[0])
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	configs, err := e.service.Configs(ctx, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tACTIVE\tVALIDATED\tLAST VALIDATED")
	for _, c := range configs {
		last := "-"
		if c.LastValidatedAt != nil {
			last = c.LastValidatedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n", c.ID, c.Provider, c.IsActive, c.IsValidated, last)
	}
	return w.Flush()
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	result, err := e.service.ValidateActive(ctx, args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.IsValid {
		fmt.Println("Credentials are valid")
		if result.StorageInfo != nil {
			fmt.Printf("  bucket: %s\n", result.StorageInfo.BucketName)
			fmt.Printf("  permissions: %v\n", result.StorageInfo.Permissions)
		}
		return nil
	}

	fmt.Printf("Validation failed at %s: %s (%s)\n", result.Error.Stage, result.Error.Message, result.Error.Code)
	for _, s := range result.Error.Suggestions {
		fmt.Printf("  - %s\n", s)
	}
	return nil
}

func readInput(file string) ([]byte, error) {
	if file == "-" {
		return readAllStdin()
	}
	return os.ReadFile(file)
}
