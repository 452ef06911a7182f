// -- cmd/files.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var filesJSON bool

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List previously downloaded documents, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newPortalClient()
		if err != nil {
			return err
		}
		defer shutdownClient(client)

		files, err := client.ListRetrievedFiles()
		if err != nil {
			return err
		}

		if filesJSON {
			return printJSON(files)
		}

		if len(files) == 0 {
			fmt.Println("No downloaded documents yet.")
			return nil
		}
		for _, f := range files {
			fmt.Printf("%s  %8s  %s\n", f.ModTime.Format("2006-01-02 15:04"), humanSize(f.Size), f.Name)
		}
		return nil
	},
}

func init() {
	filesCmd.Flags().BoolVar(&filesJSON, "json", false, "print the file list as JSON")
	rootCmd.AddCommand(filesCmd)
}

// humanSize renders a byte count for terminal display.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
