package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mindsync/config"
	"mindsync/db"
	mhttp "mindsync/http"
	"mindsync/logger"
	"mindsync/ml"
	"mindsync/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
		err = nil
	}
	if err != nil {
		fatal("failed to load config", err)
	}

	log, level, err := logger.New(cfg.Log)
	if err != nil {
		fatal("failed to build logger", err)
	}
	defer log.Sync()

	if err := run(cfg, *configPath, log, level); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("exiting")
}

func run(cfg *config.Config, configPath string, log *zap.Logger, level zap.AtomicLevel) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(cfg.Database.StoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("database ready", zap.String("path", cfg.Database.Path))

	started := time.Now()
	result, err := ml.TrainPipeline(cfg.Dataset.Path, cfg.Dataset.Target, cfg.ML.TrainConfig(), cfg.Dataset.LoadOptions()...)
	if err != nil {
		return err
	}
	log.Info("model trained",
		zap.String("dataset", cfg.Dataset.Path),
		zap.Int("rows", result.Dataset.Len()),
		zap.Int("trees", result.Model().NumTrees()),
		zap.Float64("r2", result.Metrics.R2),
		zap.Float64("mae", result.Metrics.MAE),
		zap.Float64("smape", result.Metrics.SMAPE),
		zap.Duration("took", time.Since(started)),
	)

	if err := store.SaveTrainingLog(ctx, db.TrainingLog{
		ModelName:  ml.ModelTypeRandomForest,
		R2:         result.Metrics.R2,
		MAE:        result.Metrics.MAE,
		SMAPE:      result.Metrics.SMAPE,
		DataPoints: result.Dataset.Len(),
	}); err != nil {
		log.Warn("failed to record training run", zap.Error(err))
	}

	if cfg.ML.ModelPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.ML.ModelPath), 0o755); err != nil {
			return err
		}
		if err := result.Model().Save(cfg.ML.ModelPath); err != nil {
			return err
		}
		log.Info("model saved", zap.String("path", cfg.ML.ModelPath))
	}

	predictor, err := ml.NewPredictor(result.Model(), cfg.Cache.Size)
	if err != nil {
		return err
	}

	columns := append(ml.DefaultFeatures(), result.Target)
	if quality := result.Dataset.Quality(columns...); len(quality.Issues) > 0 {
		log.Warn("dataset quality issues",
			zap.Int("rows", quality.Rows),
			zap.Int("rejected", quality.Rejected),
			zap.Any("issues", quality.Issues),
		)
	}

	hub := monitoring.NewHub(log)
	go hub.Run(ctx)
	metrics := monitoring.NewMetricsCollector()

	handler, err := mhttp.NewHandler(mhttp.Dependencies{
		Predictor: predictor,
		Training:  result,
		Store:     store,
		Hub:       hub,
		Metrics:   metrics,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	serverConfig := mhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}
	server := mhttp.NewServer(serverConfig, mhttp.NewRouter(handler, serverConfig), log)

	go func() {
		err := config.Watch(ctx, configPath, log, func(next *config.Config) {
			if err := logger.SetLevel(level, next.Log.Level); err != nil {
				log.Warn("invalid log level", zap.String("level", next.Log.Level), zap.Error(err))
			}
			predictor.Resize(next.Cache.Size)
		})
		if err != nil {
			log.Warn("config watch disabled", zap.Error(err))
		}
	}()

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func fatal(msg string, err error) {
	os.Stderr.WriteString(msg + ": " + err.Error() + "\n")
	os.Exit(1)
}
