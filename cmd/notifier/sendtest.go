package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harborline/freight-notifier/internal/config"
	"github.com/harborline/freight-notifier/internal/dispatch"
	"github.com/harborline/freight-notifier/pkg/observability"
)

var sendTestTo string

var sendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "Send a test email through the configured failover chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger := observability.NewLogger("notifier-send-test", cfg.Environment, cfg.LogLevel)

		identities := directoryFromConfig(cfg)
		chain := buildChain(cfg, logger)

		used, detail, err := chain.Dispatch(cmd.Context(), dispatch.Request{
			Identity:  identities.Default(),
			To:        []string{sendTestTo},
			Subject:   "Notifier delivery test",
			PlainBody: "This is a test email verifying the delivery failover chain.",
			HTMLBody:  "<p>This is a test email verifying the delivery failover chain.</p>",
		})
		if err != nil {
			return fmt.Errorf("delivery failed: %s", detail)
		}

		fmt.Printf("Sent via %s\n", used)
		return nil
	},
}

func init() {
	sendTestCmd.Flags().StringVar(&sendTestTo, "to", "", "recipient address")
	_ = sendTestCmd.MarkFlagRequired("to")
}
