package cmd

import (
	"fmt"
	"os"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront checkout and payment service",
	Long: `Storefront serves the catalog, carts, checkout and payment
reconciliation API, and carries the maintenance commands for its database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		log = logging.New(c.Log)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
