// -- cmd/documents.go --
package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var (
	listJSON     bool
	downloadName string
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Discover, download and read portal billing documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Discover downloadable documents on the portal",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newPortalClient()
		if err != nil {
			return err
		}
		defer shutdownClient(client)

		result, err := client.ListDocuments(cmd.Context())
		if err != nil {
			return err
		}

		if listJSON {
			return printJSON(result)
		}

		if len(result.Documents) == 0 {
			fmt.Println("No document links found.")
		}
		for _, doc := range result.Documents {
			line := fmt.Sprintf("%-6s %s", doc.FileType, doc.Label)
			if doc.Period != "" {
				line += fmt.Sprintf("  [%s]", doc.Period)
			}
			fmt.Println(line)
			fmt.Printf("       %s\n", doc.TargetURL)
		}
		if len(result.OtherLinks) > 0 {
			fmt.Printf("\n%d other links on %s\n", len(result.OtherLinks), result.SourceURL)
		}
		return nil
	},
}

var documentsDownloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download one document into the storage directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newPortalClient()
		if err != nil {
			return err
		}
		defer shutdownClient(client)

		path, err := client.DownloadDocument(cmd.Context(), args[0], downloadName)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var documentsReadCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Normalize a downloaded document to plain text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newPortalClient()
		if err != nil {
			return err
		}
		defer shutdownClient(client)

		text, err := client.ReadDocument(args[0])
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func init() {
	documentsListCmd.Flags().BoolVar(&listJSON, "json", false, "print the raw discovery result as JSON")
	documentsDownloadCmd.Flags().StringVar(&downloadName, "name", "", "file name for the download (default: timestamp-based)")

	documentsCmd.AddCommand(documentsListCmd, documentsDownloadCmd, documentsReadCmd)
	rootCmd.AddCommand(documentsCmd)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
