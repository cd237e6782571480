package cmd

import (
	"fmt"
	"strconv"

	"github.com/dfryer1193/xbrush/media/application"
	"github.com/spf13/cobra"
)

var sizeCmd = &cobra.Command{
	Use:   "size BYTES...",
	Short: "Format byte counts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			n, err := strconv.ParseInt(arg, 10, 64)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid byte count %q", arg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), application.FormatFileSize(n))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sizeCmd)
}
