package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/basecard-xyz/basecard"
	"github.com/basecard-xyz/basecard/internal/config"
	"github.com/basecard-xyz/basecard/internal/domain"
	"github.com/basecard-xyz/basecard/internal/infra/chain"
	"github.com/basecard-xyz/basecard/internal/infra/database"
	"github.com/basecard-xyz/basecard/internal/infra/gateway"
	"github.com/basecard-xyz/basecard/internal/infra/repository"
	"github.com/basecard-xyz/basecard/internal/present/rest"
	"github.com/basecard-xyz/basecard/internal/present/rest/middleware"
	"github.com/basecard-xyz/basecard/internal/service"
	"github.com/basecard-xyz/basecard/internal/usecase"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the yaml configuration file",
		Value:   "/etc/basecard/config.yaml",
		EnvVars: []string{"BASECARD_CONFIG"},
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "enable debug logging",
	}
	addressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "wallet address to check the minted state of",
	}
)

func main() {
	app := &cli.App{
		Name:  "basecard",
		Usage: "BaseCard mint service",
		Flags: []cli.Flag{configFlag, debugFlag},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool(debugFlag.Name) {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "info",
				Usage:  "print the target network and the minted state of an address",
				Flags:  []cli.Flag{addressFlag},
				Action: info,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("basecard exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint, "basecard")
		if err != nil {
			return err
		}
		defer cleanup()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	err = database.MigratePostgres(db)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var cards *repository.CardRepository
	if conf.Server.MemcachedAddr != "" {
		cards = repository.NewCardRepository(db, database.NewMemcached(conf.Server.MemcachedAddr))
	} else {
		cards = repository.NewCardRepository(db, nil)
	}

	store, err := newContentStore(ctx, conf.ContentStore)
	if err != nil {
		return err
	}

	minter, err := newChainClient(ctx, conf.Chain)
	if err != nil {
		return err
	}

	images, err := service.LoadCardImageService(conf.Card.TemplatePath, conf.Card.DefaultProfileImagePath)
	if err != nil {
		return err
	}

	var (
		events  usecase.EventPublisher
		signals rest.Signals
	)
	if conf.Server.RedisAddr != "" {
		rdb, err := database.NewRedis(ctx, conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer rdb.Close()
		signalService := service.NewSignalService(rdb)
		events = signalService
		signals = signalService
	}

	domainConfig := conf.Domain()
	mintUsecase := usecase.NewMintUsecase(images, store, cards, minter, events, domainConfig)
	cardUsecase := usecase.NewCardUsecase(cards)
	auth := middleware.NewAuthMiddleware(service.NewAuthService(domainConfig))

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("basecard"))
	}
	e.Use(auth.IdentifyIdentity)

	rest.NewHandler(domainConfig, mintUsecase, cardUsecase, signals).RegisterRoutes(e)

	go func() {
		slog.Info("Starting server",
			slog.String("addr", conf.Server.ListenAddr),
			slog.String("network", domain.ChainName(domainConfig.TargetChainID)),
		)
		if err := e.Start(conf.Server.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	// in-flight mints finish their compensation before the process exits
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func info(c *cli.Context) error {
	conf, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := newChainClient(c.Context, conf.Chain)
	if err != nil {
		return err
	}

	network, err := client.CurrentNetwork(c.Context)
	if err != nil {
		return err
	}

	out := map[string]any{
		"targetChainId":   conf.Chain.TargetChainID,
		"targetNetwork":   domain.ChainName(conf.Chain.TargetChainID),
		"connectedChain":  network,
		"contractAddress": conf.Chain.ContractAddress,
		"contentStore":    conf.ContentStore.Provider,
	}

	if address := c.String(addressFlag.Name); address != "" {
		minted, err := client.HasMinted(c.Context, address)
		if err != nil {
			return err
		}
		out["address"] = address
		out["hasMinted"] = minted
	}

	basecard.JsonPrint("info", out)
	return nil
}

func newContentStore(ctx context.Context, conf config.ContentStore) (usecase.ContentStore, error) {
	switch conf.Provider {
	case "s3":
		return gateway.NewS3PinStore(ctx, gateway.S3PinOptions{
			Endpoint:  conf.S3Endpoint,
			Region:    conf.S3Region,
			Bucket:    conf.S3Bucket,
			AccessKey: conf.S3AccessKey,
			SecretKey: conf.S3SecretKey,
			Gateway:   conf.GatewayURL,
		})
	default:
		return gateway.NewPinataStore(gateway.PinataOptions{
			JWT:            conf.PinataJWT,
			UploadEndpoint: conf.PinataUploadURL,
			APIEndpoint:    conf.PinataAPIURL,
			Gateway:        conf.GatewayURL,
		}), nil
	}
}

func newChainClient(ctx context.Context, conf config.Chain) (*chain.BaseCardClient, error) {
	backend, err := ethclient.DialContext(ctx, conf.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	var signer chain.Signer
	if conf.ExternalSigner != "" {
		signer, err = chain.NewClefSigner(conf.ExternalSigner)
	} else {
		signer, err = chain.NewKeyedSigner(conf.PrivateKey)
	}
	if err != nil {
		return nil, err
	}

	return chain.NewBaseCardClient(backend, signer, chain.Options{
		ContractAddress: conf.ContractAddress,
		PollInterval:    conf.ReceiptPollInterval,
	})
}

func setupTraceProvider(ctx context.Context, endpoint string, serviceName string) (func(), error) {
	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown tracer provider", slog.String("error", err.Error()))
		}
	}
	return cleanup, nil
}
