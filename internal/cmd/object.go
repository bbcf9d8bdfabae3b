package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/service"
)

var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Operate on objects in a user's storage",
}

var objectUploadCmd = &cobra.Command{
	Use:   "upload <user-id> <local-path> <stored-path>",
	Short: "Upload a local file",
	Long: `Upload a local file to the user's active provider.

Stored paths carry the imaginary:// prefix; the provider key is derived by
stripping it.

Examples:
  imaginestorage object upload u-123 ./report.pdf imaginary://docs/report.pdf`,
	Args: cobra.ExactArgs(3),
	RunE: runObjectUpload,
}

var objectListCmd = &cobra.Command{
	Use:   "list <user-id> <stored-prefix>",
	Short: "List objects under a prefix",
	Args:  cobra.ExactArgs(2),
	RunE:  runObjectList,
}

var objectURLCmd = &cobra.Command{
	Use:   "url <user-id> <stored-path>",
	Short: "Mint a time-limited download URL",
	Args:  cobra.ExactArgs(2),
	RunE:  runObjectURL,
}

var objectDeleteCmd = &cobra.Command{
	Use:   "delete <user-id> <stored-path>",
	Short: "Delete an object",
	Args:  cobra.ExactArgs(2),
	RunE:  runObjectDelete,
}

var objectMkdirCmd = &cobra.Command{
	Use:   "mkdir <user-id> <stored-path>",
	Short: "Create a folder marker",
	Args:  cobra.ExactArgs(2),
	RunE:  runObjectMkdir,
}

func init() {
	rootCmd.AddCommand(objectCmd)
	objectCmd.AddCommand(objectUploadCmd)
	objectCmd.AddCommand(objectListCmd)
	objectCmd.AddCommand(objectURLCmd)
	objectCmd.AddCommand(objectDeleteCmd)
	objectCmd.AddCommand(objectMkdirCmd)

	objectUploadCmd.Flags().String("content-type", "", "Content type of the uploaded object")
	objectListCmd.Flags().Int("max-keys", 0, "Maximum number of objects to return")
	objectURLCmd.Flags().Duration("expires", provider.DefaultDownloadExpiry, "URL lifetime")
}

func runObjectUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	contentType, _ := cmd.Flags().GetString("content-type")

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.service.UploadFile(ctx, args[0], service.UploadRequest{
		LocalPath:   args[1],
		StoredPath:  args[2],
		ContentType: contentType,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %s\n", res.StoredPath)
	fmt.Printf("  url: %s\n", res.FileURL)
	return nil
}

func runObjectList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	maxKeys, _ := cmd.Flags().GetInt("max-keys")

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	objects, err := e.service.ListObjects(ctx, args[0], args[1], maxKeys)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSIZE\tMODIFIED")
	for _, obj := range objects {
		fmt.Fprintf(w, "%s\t%d\t%s\n", obj.StoredPath, obj.Size, obj.LastModified.Format(time.RFC3339))
	}
	return w.Flush()
}

func runObjectURL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	expires, _ := cmd.Flags().GetDuration("expires")

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	u, err := e.service.GetDownloadURL(ctx, args[0], args[1], expires)
	if err != nil {
		return err
	}
	fmt.Println(u)
	return nil
}

func runObjectDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.service.DeleteFile(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[1])
	return nil
}

func runObjectMkdir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	path, err := e.service.CreateFolder(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}
