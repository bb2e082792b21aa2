package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mlinsightlab/mlil/internal/auth"
	"github.com/mlinsightlab/mlil/internal/common/fsutil"
	"github.com/mlinsightlab/mlil/internal/config"
	"github.com/mlinsightlab/mlil/internal/datastore"
	"github.com/mlinsightlab/mlil/internal/httpapi"
	"github.com/mlinsightlab/mlil/internal/manager"
	"github.com/mlinsightlab/mlil/internal/predictions"
	"github.com/mlinsightlab/mlil/internal/variables"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	// Flags with environment variable defaults
	configPath := flag.String("config", envOr("MLIL_CONFIG", ""), "Optional config file (.yaml/.json/.toml)")
	addr := flag.String("addr", envOr("MLIL_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	dataDir := flag.String("data-dir", envOr("MLIL_DATA_DIR", "~/mlil/data"), "Root directory for the user data store")
	dbPath := flag.String("db", envOr("MLIL_DB_PATH", "~/mlil/mlil.db"), "SQLite database path (users, variables, predictions)")
	modelImage := flag.String("model-image", envOr("MODEL_CONTAINER_IMAGE", ""), "Model serving container image")
	modelNetwork := flag.String("model-network", envOr("MODEL_NETWORK", ""), "Docker network the model containers join")
	mlflowURI := flag.String("mlflow-uri", envOr("MLFLOW_TRACKING_URI", ""), "MLflow tracking URI passed to model containers")
	modelPort := flag.Int("model-port", envIntOr("MODEL_PORT", 0), "Port the model server listens on inside the container")
	adminUser := flag.String("admin-user", envOr("MLIL_ADMIN_USER", "admin"), "Bootstrap admin username (applied when no users exist)")
	adminKey := flag.String("admin-key", envOr("MLIL_ADMIN_KEY", ""), "Bootstrap admin API key (applied when no users exist)")
	logLevel := flag.String("log-level", envOr("MLIL_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	flag.Parse()

	log := newLogger(*logLevel)

	cfg := config.Config{
		Addr:              *addr,
		DataDir:           *dataDir,
		DBPath:            *dbPath,
		ModelImage:        *modelImage,
		ModelNetwork:      *modelNetwork,
		MLflowTrackingURI: *mlflowURI,
		ModelPort:         *modelPort,
		AdminUser:         *adminUser,
		AdminKey:          *adminKey,
	}
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		// File values beat flag defaults; flags given on the command line
		// beat the file.
		explicit := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		cfg = mergeConfig(cfg, fileCfg, explicit)
	}

	store, err := datastore.New(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open data store")
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	vars, err := variables.New(db)
	if err != nil {
		log.Fatal().Err(err).Msg("init variable store")
	}
	preds, err := predictions.New(db)
	if err != nil {
		log.Fatal().Err(err).Msg("init prediction store")
	}
	users, err := auth.New(db)
	if err != nil {
		log.Fatal().Err(err).Msg("init user store")
	}
	if created, err := users.Bootstrap(context.Background(), cfg.AdminUser, cfg.AdminKey); err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin user")
	} else if created {
		log.Info().Str("user", cfg.AdminUser).Msg("created bootstrap admin user")
	}

	runner, err := manager.NewDockerRunner()
	if err != nil {
		log.Fatal().Err(err).Msg("connect docker engine")
	}
	mgr := manager.NewWithConfig(manager.Config{
		Runner:            runner,
		ModelImage:        cfg.ModelImage,
		ModelNetwork:      cfg.ModelNetwork,
		MLflowTrackingURI: cfg.MLflowTrackingURI,
		ModelPort:         cfg.ModelPort,
	})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetInvokeTimeoutSeconds(cfg.InvokeTimeoutSeconds)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)

	mux := httpapi.NewMux(httpapi.Services{
		Deployments: mgr,
		Data:        store,
		Variables:   vars,
		Predictions: preds,
		Users:       users,
		Auth:        users,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("data_dir", store.Root()).Msg("mlild listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	// Containers are not leaked across daemon restarts.
	if err := mgr.RemoveAll(ctx); err != nil {
		log.Error().Err(err).Msg("remove deployments on shutdown")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func openDB(path string) (*sql.DB, error) {
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return nil, err
	}
	return sql.Open("sqlite", expanded)
}

// mergeConfig overlays non-zero file fields onto the flag-derived config,
// except for flags the user passed explicitly.
func mergeConfig(flags, file config.Config, explicit map[string]bool) config.Config {
	out := flags
	if file.Addr != "" && !explicit["addr"] {
		out.Addr = file.Addr
	}
	if file.DataDir != "" && !explicit["data-dir"] {
		out.DataDir = file.DataDir
	}
	if file.DBPath != "" && !explicit["db"] {
		out.DBPath = file.DBPath
	}
	if file.ModelImage != "" && !explicit["model-image"] {
		out.ModelImage = file.ModelImage
	}
	if file.ModelNetwork != "" && !explicit["model-network"] {
		out.ModelNetwork = file.ModelNetwork
	}
	if file.MLflowTrackingURI != "" && !explicit["mlflow-uri"] {
		out.MLflowTrackingURI = file.MLflowTrackingURI
	}
	if file.ModelPort != 0 && !explicit["model-port"] {
		out.ModelPort = file.ModelPort
	}
	if file.AdminUser != "" && !explicit["admin-user"] {
		out.AdminUser = file.AdminUser
	}
	if file.AdminKey != "" && !explicit["admin-key"] {
		out.AdminKey = file.AdminKey
	}
	out.MaxBodyBytes = file.MaxBodyBytes
	out.InvokeTimeoutSeconds = file.InvokeTimeoutSeconds
	out.CORSEnabled = file.CORSEnabled
	out.CORSAllowedOrigins = file.CORSAllowedOrigins
	out.CORSAllowedMethods = file.CORSAllowedMethods
	out.CORSAllowedHeaders = file.CORSAllowedHeaders
	return out
}
