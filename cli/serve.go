package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/georgepadayatti/esign/api"
	"github.com/georgepadayatti/esign/certificate"
	"github.com/georgepadayatti/esign/config"
	"github.com/georgepadayatti/esign/document"
	"github.com/georgepadayatti/esign/logging"
	"github.com/georgepadayatti/esign/metrics"
	"github.com/georgepadayatti/esign/service"
	"github.com/georgepadayatti/esign/sign/finalizer"
	"github.com/georgepadayatti/esign/sign/signers"
	"github.com/georgepadayatti/esign/sign/timestamps"
	"github.com/georgepadayatti/esign/storage"
	"github.com/georgepadayatti/esign/store"
	"github.com/georgepadayatti/esign/verification"
)

// ServeOptions contains options for the serve command.
type ServeOptions struct {
	ConfigFile string
	EnvFile    string
	SeedFile   string
}

// ServeCommand implements the 'serve' command.
func ServeCommand(args []string) {
	serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)

	var opts ServeOptions

	serveFlags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	serveFlags.StringVar(&opts.EnvFile, "env-file", "", "dotenv file overlaid on the configuration")
	serveFlags.StringVar(&opts.SeedFile, "seed", "", "JSON array of documents to create at startup")

	serveFlags.Usage = func() {
		fmt.Printf("Usage: %s serve [options]\n\n", os.Args[0])
		fmt.Println("Run the signing and verification HTTP API.")
		fmt.Println("")
		fmt.Println("Options:")
		serveFlags.PrintDefaults()
	}

	if err := serveFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, &opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

// LoadConfig reads the configuration file, when given, and overlays the
// environment and the optional dotenv file.
func LoadConfig(configFile, envFile string) (*config.AppConfig, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadAppConfig(configFile); err != nil {
			return nil, err
		}
	}
	env := config.Environ()
	if envFile != "" {
		var err error
		if env, err = config.ReadEnvFile(envFile, env); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(ctx context.Context, opts *ServeOptions) error {
	cfg, err := LoadConfig(opts.ConfigFile, opts.EnvFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if opts.SeedFile != "" {
		n, err := seedDocuments(ctx, a.documents, opts.SeedFile)
		if err != nil {
			return err
		}
		logger.Info("seeded documents", zap.Int("count", n))
	}
	return a.server.Run(ctx, cfg.Server.Address, cfg.Server.ShutdownTimeout)
}

// objectBackend is an object store that can also read back its own URLs.
type objectBackend interface {
	storage.ObjectStore
	storage.Resolver
}

type app struct {
	documents store.DocumentStore
	objects   objectBackend
	service   *service.Service
	verifier  *verification.Service
	server    *api.Server
}

// newApp wires the configured stores, the signing pipeline and the router.
func newApp(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*app, error) {
	bundle, err := cfg.Signing.PKCS12.Bundle()
	if err != nil {
		return nil, fmt.Errorf("failed to load signing bundle: %w", err)
	}

	var documents store.DocumentStore
	switch cfg.Database.Driver {
	case "postgres":
		if documents, err = store.OpenPostgres(cfg.Database, logger); err != nil {
			return nil, err
		}
	default:
		documents = store.NewMemoryStore()
	}

	var objects objectBackend
	var filesDir string
	switch cfg.Storage.Driver {
	case "s3":
		if objects, err = storage.NewS3Store(ctx, &cfg.Storage.S3); err != nil {
			return nil, err
		}
	case "local":
		local, err := storage.NewLocalStore(cfg.Storage.Local.Dir, cfg.Storage.Local.BaseURL)
		if err != nil {
			return nil, err
		}
		objects, filesDir = local, local.Dir()
	default:
		objects = storage.NewMemoryStore()
	}

	m := metrics.New()
	engine := signers.NewEngine(nil, logger)
	if ts := cfg.Signing.Timestamp; ts != nil && ts.URL != "" {
		tsa := timestamps.NewHTTPTimestamper(ts.URL, ts.TimeoutDuration())
		if ts.Username != "" {
			tsa.SetCredentials(ts.Username, ts.Password)
		}
		engine.Timestamper = tsa
	}

	verifier := verification.NewService(documents, verification.Options{
		CacheTTL:  cfg.Verification.CacheTTL,
		CacheSize: cfg.Verification.CacheSize,
		Metrics:   m,
		Logger:    logger,
	})
	fetcher := storage.NewURLFetcher(15*time.Second, objects)
	svc := service.New(service.Config{
		ESignName:   cfg.Signing.ESignName,
		ContactInfo: cfg.Signing.ContactInfo,
		Location:    cfg.Signing.Location,
		PublicURL:   cfg.Server.PublicURL,
	}, service.Dependencies{
		Store:        documents,
		Objects:      objects,
		Finalizer:    finalizer.New(nil, logger),
		Engine:       engine,
		Certificates: certificate.NewGenerator(fetcher, nil, logger),
		Verifier:     verifier,
		Bundle:       bundle,
		Metrics:      m,
		Logger:       logger,
	})

	server := api.NewServer(api.Options{
		Service:  svc,
		Verifier: verifier,
		Metrics:  m,
		Logger:   logger,
		Mode:     cfg.Server.Mode,
		FilesDir: filesDir,
	})
	return &app{documents: documents, objects: objects, service: svc, verifier: verifier, server: server}, nil
}

// seedDocuments creates the documents listed in a JSON file. Existing ones
// are left alone.
func seedDocuments(ctx context.Context, documents store.DocumentStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}
	var docs []*document.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}
	n := 0
	for _, doc := range docs {
		err := documents.Create(ctx, doc)
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("seeding %s: %w", doc.ID, err)
		}
		n++
	}
	return n, nil
}
