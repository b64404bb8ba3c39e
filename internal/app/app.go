package app

import (
	"context"
	"fmt"
	"log/slog"

	httpapp "premium_gallery/internal/app/http"
	"premium_gallery/internal/config"
	"premium_gallery/internal/lib/contenttype"
	"premium_gallery/internal/lib/locker"
	"premium_gallery/internal/lib/logger/sl"
	"premium_gallery/internal/processor"
	"premium_gallery/internal/repository"
	gallery "premium_gallery/internal/services/gallery_service"
	item "premium_gallery/internal/services/item_service"
	filestorage "premium_gallery/internal/storage/filestorage"
	"premium_gallery/internal/storage/postgresql"
	redisstorage "premium_gallery/internal/storage/redis"
	"premium_gallery/internal/storage/s3storage"
	httprouters "premium_gallery/internal/transport/http"
)

const (
	driverLocal = "local"
	driverS3    = "s3"
)

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.Server
	storage    *postgresql.Storage
	redis      *redisstorage.Client
	processor  processor.Processor
}

func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	storage, err := postgresql.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := storage.Migrate(ctx); err != nil {
		storage.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{
		log:     log,
		storage: storage,
	}

	files, uploadsDir, err := newFileStorage(cfg.FileStorage)
	if err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	proc, err := processor.New(log, cfg.Gallery.Processor)
	if err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.processor = proc

	checks := map[string]httprouters.HealthChecker{
		"postgres": storage.HealthCheck,
	}

	var lk locker.Locker = locker.NewKeyedMutex()
	if cfg.Redis.Enabled {
		a.redis = redisstorage.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := a.redis.HealthCheck(ctx); err != nil {
			a.Stop()
			return nil, fmt.Errorf("%s: redis: %w", op, err)
		}
		if ttl := cfg.LockTTL(); ttl != cfg.Redis.LockTTL {
			log.Warn("redis lock_ttl is too short for processor_timeout, raised",
				slog.Duration("configured", cfg.Redis.LockTTL),
				slog.Duration("effective", ttl),
			)
		}
		lk = locker.NewRedisLocker(a.redis, cfg.LockTTL())
		checks["redis"] = a.redis.HealthCheck
	}

	repo := repository.NewRepository(storage.Pool())

	itemService := item.NewItemService(
		log,
		repo.Galleries,
		repo.Items,
		files,
		proc,
		contenttype.New(cfg.Gallery.ContentTypes),
		lk,
		item.Config{
			PathPrefix:        cfg.Gallery.PathPrefix,
			DefaultThumbnails: cfg.Gallery.DefaultThumbnails,
			ProcessorTimeout:  cfg.Gallery.ProcessorTimeout,
		},
	)
	galleryService := gallery.NewGalleryService(log, repo.Galleries, itemService)

	routers := httprouters.NewRouter(log, galleryService, itemService, checks)

	a.HTTPServer = httpapp.New(log, httpapp.Options{
		Host:       cfg.HTTP.Host,
		Port:       cfg.HTTP.Port,
		BodyLimit:  cfg.FileStorage.MaxSize,
		UploadsDir: uploadsDir,
	}, routers)

	log.Info("application initialized",
		slog.String("file_storage", cfg.FileStorage.Driver),
		slog.String("processor", proc.Name()),
		slog.Bool("redis_locks", cfg.Redis.Enabled),
	)

	return a, nil
}

// newFileStorage второй результат: каталог для раздачи по /uploads, только для локального диска
func newFileStorage(cfg config.FileStorageConfig) (filestorage.FileStorage, string, error) {
	switch cfg.Driver {
	case "", driverLocal:
		files, err := filestorage.NewLocalFileStorage(cfg.BaseDir, cfg.BaseURL, cfg.MaxSize)
		if err != nil {
			return nil, "", err
		}
		return files, files.GetBaseDir(), nil
	case driverS3:
		files, err := s3storage.New(s3storage.Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
			BaseURL:         cfg.BaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return files, "", nil
	default:
		return nil, "", fmt.Errorf("unknown file storage driver %q", cfg.Driver)
	}
}

// Stop освобождает ресурсы в порядке, обратном созданию
func (a *App) Stop() {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Stop(); err != nil {
			a.log.Error("failed to stop http server", sl.Err(err))
		}
	}

	if a.processor != nil && a.processor.Name() == processor.ChoiceVips {
		processor.ShutdownVips()
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("failed to close redis", sl.Err(err))
		}
	}

	if a.storage != nil {
		a.storage.Stop()
	}
}
