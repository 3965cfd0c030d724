package cmd

import (
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	seedAdminEmail    string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create an admin account and sample products",
	Long: `Seed creates the admin account and a small sample catalog.
Rows that already exist are left untouched, so seeding twice is safe.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@storefront.local", "admin account email")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "admin123", "admin account password")
	rootCmd.AddCommand(seedCmd)
}

var sampleProducts = []store.NewProduct{
	{SKU: "PHN-001", Name: "Galaxy A55", Slug: "galaxy-a55", Category: "phones",
		Price: decimal.NewFromInt(9990000), DiscountPrice: decimal.NewNullDecimal(decimal.NewFromInt(8990000)), StockQuantity: 25},
	{SKU: "PHN-002", Name: "iPhone 15", Slug: "iphone-15", Category: "phones",
		Price: decimal.NewFromInt(22990000), StockQuantity: 10},
	{SKU: "ACC-001", Name: "USB-C Cable 1m", Slug: "usb-c-cable-1m", Category: "accessories",
		Price: decimal.NewFromInt(150000), StockQuantity: 200},
	{SKU: "ACC-002", Name: "20W Charger", Slug: "20w-charger", Category: "accessories",
		Price: decimal.NewFromInt(450000), DiscountPrice: decimal.NewNullDecimal(decimal.NewFromInt(390000)), StockQuantity: 80},
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(seedAdminPassword)
	if err != nil {
		return err
	}

	_, err = store.CreateUser(ctx, db, seedAdminEmail, "Administrator", hash, models.RoleAdmin)
	switch {
	case errors.Is(err, database.ErrEmailTaken):
		log.WithField("email", seedAdminEmail).Info("admin already exists")
	case err != nil:
		return fmt.Errorf("create admin: %w", err)
	default:
		log.WithField("email", seedAdminEmail).Info("created admin")
	}

	created := 0
	for _, p := range sampleProducts {
		if _, err := store.CreateProduct(ctx, db, p); err != nil {
			if database.IsUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("create product %s: %w", p.SKU, err)
		}
		created++
	}
	log.Infof("seeded %d product(s)", created)

	return nil
}
