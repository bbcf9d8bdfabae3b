package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health <user-id> [user-id...]",
	Short: "Probe the health of users' active providers",
	Long: `Resolve each user's active provider and probe it. A user whose
credentials fail to resolve reports unhealthy rather than aborting the run.

Examples:
  imaginestorage health u-123
  imaginestorage health u-123 u-456 u-789`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	statuses := e.service.HealthCheckAll(ctx, args)

	unhealthy := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tHEALTHY")
	for _, id := range args {
		fmt.Fprintf(w, "%s\t%t\n", id, statuses[id])
		if !statuses[id] {
			unhealthy++
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d of %d providers unhealthy", unhealthy, len(args))
	}
	return nil
}
