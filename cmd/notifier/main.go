package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Freight booking notification service",
	Long: `notifier watches booking deadlines and sends reminder, milestone and
report emails through a failover chain of delivery providers.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./notifier.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendTestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
