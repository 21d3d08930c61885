// Package app assembles pipeline components from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tendant/image-analysis-pipeline/internal/config"
	"github.com/tendant/image-analysis-pipeline/internal/metrics"
	"github.com/tendant/image-analysis-pipeline/internal/storage"
	"github.com/tendant/image-analysis-pipeline/internal/vision"
	"github.com/tendant/image-analysis-pipeline/internal/workflows"
)

// Cleanup releases a component. It is never nil.
type Cleanup func()

func noop() {}

// NewImageSource opens the object store the local analyzer reads pixels from
func NewImageSource(ctx context.Context, cfg config.SourceConfig) (vision.ImageSource, Cleanup, error) {
	switch cfg.Kind {
	case config.SourceFilesystem:
		fs, err := storage.NewFilesystemStorage(cfg.Dir)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	case config.SourceGCS:
		gcs, err := storage.NewGCSStorage(ctx)
		if err != nil {
			return nil, noop, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	case config.SourceMinio:
		mc, err := storage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return nil, noop, err
		}
		return mc, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown image source %q", cfg.Kind)
	}
}

// NewProvider builds the annotator provider for the configured vision backend
func NewProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (vision.Provider, Cleanup, error) {
	switch cfg.Vision.Backend {
	case config.VisionLocal:
		source, cleanup, err := NewImageSource(ctx, cfg.Source)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open image source: %w", err)
		}
		logger.Info("using local analyzer",
			zap.String("source", cfg.Source.Kind),
			zap.Bool("assume_safe", cfg.Vision.AssumeSafe))
		return vision.NewSharedProvider(vision.NewLocalAnalyzer(source, cfg.Vision.AssumeSafe)), cleanup, nil

	case config.VisionCloud:
		if cfg.Vision.ClientMode == config.ClientPerCall {
			logger.Info("using Cloud Vision with a client per invocation")
			return vision.NewScopedProvider(vision.CloudDialer(logger), func(err error) {
				if err != nil {
					logger.Warn("failed to close vision client", zap.Error(err))
				}
			}), noop, nil
		}

		annotator, err := vision.NewCloudAnnotator(ctx, logger)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using Cloud Vision with a shared client")
		return vision.NewSharedProvider(annotator), func() { _ = annotator.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown vision backend %q", cfg.Vision.Backend)
	}
}

// NewWriter opens the picture record store
func NewWriter(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (storage.PictureWriter, Cleanup, error) {
	switch cfg.Backend {
	case config.StoreFirestore:
		w, err := storage.NewFirestoreWriter(ctx, cfg.ProjectID)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create firestore client: %w", err)
		}
		logger.Info("using firestore picture store", zap.String("collection", storage.CollectionPictures))
		return w, func() { _ = w.Close() }, nil

	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		w, err := storage.NewPostgresWriter(ctx, db)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		logger.Info("using postgres picture store", zap.String("table", storage.CollectionPictures))
		return w, func() { _ = db.Close() }, nil

	case config.StoreMemory:
		logger.Info("using in-memory picture store")
		return storage.NewMemoryWriter(), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// NewAnalysisWorkflow wires the configured provider and store into the analysis workflow
func NewAnalysisWorkflow(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*workflows.ImageAnalysisWorkflow, Cleanup, error) {
	provider, closeProvider, err := NewProvider(ctx, cfg, logger)
	if err != nil {
		return nil, noop, err
	}

	writer, closeWriter, err := NewWriter(ctx, cfg.Store, logger)
	if err != nil {
		closeProvider()
		return nil, noop, err
	}

	wf := workflows.NewImageAnalysisWorkflow(provider, writer, logger, m, workflows.AnalysisOptions{
		VisionTimeout: cfg.Vision.Timeout,
		StoreTimeout:  cfg.Store.Timeout,
	})
	return wf, func() {
		closeWriter()
		closeProvider()
	}, nil
}
