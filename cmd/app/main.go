package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/wichananm65/park-shop-backend/internal/address"
	"github.com/wichananm65/park-shop-backend/internal/auth"
	"github.com/wichananm65/park-shop-backend/internal/cart"
	"github.com/wichananm65/park-shop-backend/internal/category"
	"github.com/wichananm65/park-shop-backend/internal/config"
	"github.com/wichananm65/park-shop-backend/internal/database"
	"github.com/wichananm65/park-shop-backend/internal/events"
	"github.com/wichananm65/park-shop-backend/internal/metrics"
	"github.com/wichananm65/park-shop-backend/internal/order"
	"github.com/wichananm65/park-shop-backend/internal/product"
	"github.com/wichananm65/park-shop-backend/internal/user"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}
	log.SetLevel(parseLevel(cfg.LogLevel))
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	cancel()
	if err != nil {
		log.Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := database.Migrate(db.DB); err != nil {
			log.Fatalw("migrations failed", "error", err)
		}
	}

	m := metrics.New()
	app := fiber.New(fiber.Config{AppName: "park-shop-backend"})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	setupCORS(app)
	app.Use(m.Middleware())
	app.Use(requestTimeout(cfg.RequestTimeout))

	app.Get("/health", healthHandler(db))
	app.Get("/metrics", m.Handler())

	// catalog
	productService := product.NewService(product.NewPostgresRepository(db.DB))
	productHandler := product.NewHandler(productService)
	categoryHandler := category.NewHandler(category.NewService(category.NewPostgresRepository(db.DB)))

	// cart, optionally fronted by redis
	var cartRepo cart.Repository = cart.NewPostgresRepository(db.DB)
	engineOpts := []order.EngineOption{order.WithRecorder(m)}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cached := cart.NewCachedRepository(cartRepo, cart.NewRedisCache(rdb))
		cartRepo = cached
		engineOpts = append(engineOpts, order.WithCartInvalidator(cached))
		log.Infow("cart cache enabled", "addr", cfg.RedisAddr)
	}
	cartHandler := cart.NewHandler(cart.NewService(cartRepo, productService))

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		log.Infow("order events enabled", "brokers", strings.Join(cfg.KafkaBrokers, ","), "topic", cfg.KafkaOrderTopic)
	}
	defer publisher.Close()
	engineOpts = append(engineOpts, order.WithPublisher(publisher))

	addressService := address.NewService(address.NewPostgresRepository(db.DB))
	addressHandler := address.NewHandler(addressService)

	orderRepo := order.NewPostgresRepository(db.DB)
	orderHandler := order.NewHandler(
		order.NewEngine(orderRepo, engineOpts...),
		order.NewService(orderRepo),
		savedRecipient(addressService),
	)

	userHandler := user.NewHandler(user.NewService(user.NewPostgresRepository(db.DB), cfg.JWTSecret, cfg.JWTTTL))

	userHandler.RegisterPublicRoutes(app)
	productHandler.RegisterPublicRoutes(app)
	categoryHandler.RegisterPublicRoutes(app)

	app.Use(auth.Middleware(cfg.JWTSecret))

	userHandler.RegisterProtectedRoutes(app)
	cartHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)
	addressHandler.RegisterProtectedRoutes(app)

	admin := app.Group("/api/v1/admin", auth.RequireAdmin())
	productHandler.RegisterAdminRoutes(admin)
	orderHandler.RegisterAdminRoutes(admin)
	userHandler.RegisterAdminRoutes(admin)

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			log.Errorw("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(cfg.RequestTimeout + 5*time.Second); err != nil {
		log.Errorw("shutdown failed", "error", err)
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))
}

// requestTimeout bounds every handler's context, including the time spent
// waiting for a pooled connection.
func requestTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func healthHandler(db *database.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acquired, idle, maxConns := db.Stats()
		pool := fiber.Map{"acquired": acquired, "idle": idle, "max": maxConns}
		if err := db.PingContext(c.UserContext()); err != nil {
			log.Warnw("health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "pool": pool})
		}
		return c.JSON(fiber.Map{"status": "ok", "pool": pool})
	}
}

func savedRecipient(s *address.Service) order.RecipientLookup {
	return func(ctx context.Context, userID, addressID int) (order.Recipient, error) {
		a, err := s.Get(ctx, userID, addressID)
		if err != nil {
			return order.Recipient{}, err
		}
		return order.Recipient{Name: a.Consignee, Phone: a.Tel, Address: a.Address}, nil
	}
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}
