package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a credential file without storing it",
	Long: `Run the staged credential probes against a credential JSON document
without touching any stored configuration. Useful for checking credentials
before onboarding a user.

Examples:
  imaginestorage validate --file creds.json
  imaginestorage validate --file creds.json --json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("file", "", "Credential JSON file, or - for stdin")
	_ = validateCmd.MarkFlagRequired("file")
	validateCmd.Flags().Bool("json", false, "Output the full validation result as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	file, _ := cmd.Flags().GetString("file")
	jsonOutput, _ := cmd.Flags().GetBool("json")

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

	result, err := e.service.ValidateCredentials(ctx, creds)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.IsValid {
		fmt.Printf("Credentials are valid (%s)\n", creds.Redacted())
		if result.StorageInfo != nil {
			fmt.Printf("  permissions: %v\n", result.StorageInfo.Permissions)
			fmt.Printf("  latency: existence %dms, write %dms, delete %dms\n",
				result.StorageInfo.Latency.ExistenceCheckMS,
				result.StorageInfo.Latency.WriteTestMS,
				result.StorageInfo.Latency.DeleteTestMS)
		}
		return nil
	}

	fmt.Printf("Validation failed at %s: %s (%s)\n", result.Error.Stage, result.Error.Message, result.Error.Code)
	for _, s := range result.Error.Suggestions {
		fmt.Printf("  - %s\n", s)
	}
	return nil
}
