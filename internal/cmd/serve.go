package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/safar/storefront/internal/admin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/events"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/payment/gateways"
	"github.com/safar/storefront/internal/reconcile"
	"github.com/safar/storefront/internal/server"
	"github.com/safar/storefront/internal/wishlist"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Auth.CheckSecret(); err != nil {
		return fmt.Errorf("refusing to serve: %w, set AUTH_JWT_SECRET", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("connected to database")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	var (
		publisher events.Publisher = events.NopPublisher{}
		producer  *events.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Buffer, logging.Component(log, "events"))
		publisher = producer
	} else {
		log.Warn("no kafka brokers configured, order events are not published")
	}

	registry, err := gateways.Registry(cfg, log)
	if err != nil {
		return fmt.Errorf("build payment gateways: %w", err)
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	carts := cart.NewService(
		cart.NewRedisStore(rdb, cfg.Redis.CartTTL),
		cart.NewPostgresCatalog(db),
		cart.NewPostgresMirror(db),
		logging.Component(log, "cart"),
	)
	assembler := checkout.NewAssembler(carts, checkout.NewPostgresOrders(db), publisher, logging.Component(log, "checkout"))
	reconciler := reconcile.New(db, registry, carts, logging.Component(log, "reconcile"),
		reconcile.WithPublisher(publisher),
		reconcile.WithDeduper(reconcile.NewRedisDeduper(rdb)),
	)

	srv := server.New(cfg, server.Deps{
		Accounts: auth.NewService(db, issuer),
		Issuer:   issuer,
		Carts:    carts,
		Checkout: assembler,
		Payments: reconciler,
		Catalog:  server.NewPostgresCatalog(db),
		Orders:   server.NewPostgresOrders(db),
		Wishlist: wishlist.NewService(wishlist.NewPostgresStore(db), carts, logging.Component(log, "wishlist")),
		Admin:    admin.NewService(db, logging.Component(log, "admin")),
		Health: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		},
	}, logging.Component(log, "http"))

	g, gctx := errgroup.WithContext(ctx)
	serverDone := make(chan struct{})

	g.Go(func() error {
		defer close(serverDone)
		return srv.Run(gctx)
	})

	// The producer outlives the server so in-flight requests can still
	// publish; it flushes once the server has stopped.
	if producer != nil {
		producerCtx, stopProducer := context.WithCancel(context.WithoutCancel(ctx))
		producer.Start(producerCtx)
		g.Go(func() error {
			<-serverDone
			stopProducer()
			producer.WaitClosed()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
