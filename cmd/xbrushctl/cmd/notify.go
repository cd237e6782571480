package cmd

import (
	"fmt"
	"strings"

	"github.com/dfryer1193/xbrush/notify/application"
	"github.com/dfryer1193/xbrush/notify/domain"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify TEXT...",
	Short: "Send a Slack message",
	Long: `Post a plain text message to the Slack incoming webhook named by
--webhook-url or SLACK_WEBHOOK_URL.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().String("webhook-url", "", "Slack webhook URL (default $SLACK_WEBHOOK_URL)")
}

func runNotify(cmd *cobra.Command, args []string) error {
	printer := newPrinter(cmd)

	url, _ := cmd.Flags().GetString("webhook-url")
	if url == "" {
		url = cfg.SlackWebhookURL
	}

	payload, err := application.EncodeMessage(domain.Message{Text: strings.Join(args, " ")})
	if err != nil {
		return err
	}

	forwarder := application.NewSlackForwarder(url, cfg.NotifyTimeout)
	if err := forwarder.Forward(cmd.Context(), payload); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	printer.Success("Notification sent")
	return nil
}
