package cmd

import (
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/migrations"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the database schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{migrations.Up, migrations.Down},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db, args[0])
	if err != nil {
		return err
	}

	for _, name := range applied {
		log.WithField("file", name).Info("applied migration")
	}
	log.WithField("direction", args[0]).Infof("%d migration(s) applied", len(applied))
	return nil
}
