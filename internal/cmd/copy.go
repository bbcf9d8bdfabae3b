package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/output"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/service"
)

var copyCmd = &cobra.Command{
	Use:   "copy <user-id> <from-stored-path> <to-stored-path>",
	Short: "Copy an object within the user's storage",
	Long: `Copy an object server-side within the user's active provider.

By default the destination inherits the source metadata. With --metadata,
the given key=value pairs replace it.

Examples:
  imaginestorage copy u-123 imaginary://docs/a.txt imaginary://archive/a.txt
  imaginestorage copy u-123 imaginary://a imaginary://b --metadata owner=ops`,
	Args: cobra.ExactArgs(3),
	RunE: runCopy,
}

var moveCmd = &cobra.Command{
	Use:   "move <user-id> <from-stored-path> <to-stored-path>",
	Short: "Move an object within the user's storage",
	Long: `Move an object via copy-then-delete. When the copy succeeds but the
source delete fails, both objects exist and the error says so; rerunning the
delete is safe.`,
	Args: cobra.ExactArgs(3),
	RunE: runMove,
}

var batchCopyCmd = &cobra.Command{
	Use:   "batch-copy <user-id>",
	Short: "Copy many objects from a manifest",
	Long: `Copy many objects with bounded concurrency. The manifest is a JSON
array of {"from": ..., "to": ...} stored-path pairs.

The first failure stops new copies from being dispatched; copies already in
flight run to completion and completed copies are not rolled back.

Examples:
  imaginestorage batch-copy u-123 --manifest mappings.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchCopy,
}

func init() {
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(batchCopyCmd)

	copyCmd.Flags().StringToString("metadata", nil, "Replacement metadata as key=value pairs")
	batchCopyCmd.Flags().String("manifest", "", "Manifest JSON file, or - for stdin")
	_ = batchCopyCmd.MarkFlagRequired("manifest")
	batchCopyCmd.Flags().String("report", "", "Write a JSONL report of the batch to this file")
}

func runCopy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	metadata, _ := cmd.Flags().GetStringToString("metadata")

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	req := service.CopyRequest{
		FromStoredPath: args[1],
		ToStoredPath:   args[2],
	}
	if len(metadata) > 0 {
		req.Metadata = metadata
		req.ReplaceMetadata = true
	}

	if err := e.service.CopyObject(ctx, args[0], req); err != nil {
		return err
	}
	fmt.Printf("Copied %s to %s\n", args[1], args[2])
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.service.MoveObject(ctx, args[0], service.CopyRequest{
		FromStoredPath: args[1],
		ToStoredPath:   args[2],
	}); err != nil {
		return err
	}
	fmt.Printf("Moved %s to %s\n", args[1], args[2])
	return nil
}

type manifestEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func runBatchCopy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	manifest, _ := cmd.Flags().GetString("manifest")
	reportPath, _ := cmd.Flags().GetString("report")

	raw, err := readInput(manifest)
	if err != nil {
		return err
	}
	var entries []manifestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	mappings := make([]service.BatchMapping, len(entries))
	for i, entry := range entries {
		mappings[i] = service.BatchMapping{FromStoredPath: entry.From, ToStoredPath: entry.To}
	}

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	start := time.Now()
	results, batchErr := e.service.BatchCopy(ctx, args[0], mappings)

	if reportPath != "" {
		if err := writeBatchReport(ctx, e, reportPath, args[0], results, batchErr, time.Since(start)); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FROM\tTO\tSTATUS")
	for _, r := range results {
		status := "ok"
		switch {
		case r.Err != nil:
			status = "failed: " + r.Err.Error()
		case !r.Dispatched:
			status = "skipped"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Mapping.FromStoredPath, r.Mapping.ToStoredPath, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return batchErr
}

func writeBatchReport(ctx context.Context, e *env, path, userID string, results []service.BatchItemResult, batchErr error, elapsed time.Duration) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() { _ = f.Close() }()

	providerName := ""
	if cfg, err := e.service.ActiveConfig(ctx, userID); err == nil {
		providerName = cfg.Provider.String()
	}

	rw := output.NewJSONLWriter(f, uuid.NewString(), providerName)
	defer func() { _ = rw.Close() }()

	summary := output.SummaryRecord{
		Total:      len(results),
		DurationMS: elapsed.Milliseconds(),
	}
	for _, r := range results {
		item := output.ItemRecord{
			From:       r.Mapping.FromStoredPath,
			To:         r.Mapping.ToStoredPath,
			Dispatched: r.Dispatched,
		}
		switch {
		case r.Err != nil:
			item.Error = r.Err.Error()
			summary.Failed++
		case !r.Dispatched:
			summary.Skipped++
		default:
			summary.Succeeded++
		}
		if err := rw.WriteItem(ctx, &item); err != nil {
			return err
		}
	}
	if batchErr != nil {
		if err := rw.WriteError(ctx, &output.ErrorRecord{Op: "BatchCopy", Message: batchErr.Error()}); err != nil {
			return err
		}
	}
	return rw.WriteSummary(ctx, &summary)
}
