package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dfryer1193/xbrush/media/application"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE",
	Short: "Decode a data URI file into raw bytes",
	Long: `Read a file holding a data:<mime>;base64,<payload> URI and write the
decoded bytes. Without --out the output lands next to FILE with an
extension matching the MIME type.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().String("out", "", "output path")
}

func runDecode(cmd *cobra.Command, args []string) error {
	printer := newPrinter(cmd)
	path := args[0]

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	blob, err := application.Base64ToBlob(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + extensionFor(blob.MIMEType)
	}

	if err := os.WriteFile(out, blob.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	printer.Success("Wrote %s (%s, %s)", out, blob.MIMEType, application.FormatFileSize(int64(len(blob.Data))))
	return nil
}
