// Package app wires repositories, services, and the session manager from
// the handles main() provides.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"queryd/internal/config"
	"queryd/internal/db/repository"
	"queryd/internal/engine"
	"queryd/internal/service/export"
	"queryd/internal/service/profile"
	"queryd/internal/service/query"
	"queryd/internal/service/retention"
	"queryd/internal/session"
	"queryd/internal/translate"
)

// Deps holds the external dependencies that main() must provide: config,
// the data engine, the metastore pools, and the logger.
type Deps struct {
	Cfg     *config.Config
	Engine  *engine.Engine
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups the service pointers the API handler and console need.
type Services struct {
	Query     *query.Service
	Profile   *profile.Service
	Export    *export.Service
	Retention *retention.Sweeper
}

// App holds the fully-wired application.
type App struct {
	Services   Services
	Sessions   *session.Manager
	APIKeyRepo *repository.APIKeyRepo
}

// New wires repositories and services from deps. Object-store presigners
// and the matching engine secrets are created only for the stores the
// config carries credentials for.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	savedRepo := repository.NewSavedQueryRepo(deps.WriteDB)
	historyRepo := repository.NewQueryHistoryRepo(deps.WriteDB)
	apiKeyRepo := repository.NewAPIKeyRepo(deps.ReadDB)

	translator := translate.New()
	sessions := session.NewManager(cfg.SessionTTL, deps.Logger)

	profileSvc := profile.NewService(savedRepo, historyRepo, deps.Logger)

	querySvc := query.NewService(deps.Engine, translator, query.Config{
		FirstResultTick:     cfg.Query.FirstResultTick,
		SuperviseTick:       cfg.Query.SuperviseTick,
		RegistryGracePeriod: cfg.Query.RegistryGracePeriod,
	}, deps.Logger)
	querySvc.SetHistory(historyRepo)
	querySvc.SetSaver(profileSvc)

	presigners, err := buildPresigners(ctx, cfg, deps, deps.Logger)
	if err != nil {
		return nil, err
	}
	exportSvc := export.NewService(deps.Engine, translator, presigners, export.Config{
		SpoolDir:    cfg.Export.SpoolDir,
		Destination: cfg.Export.Destination,
		URLTTL:      cfg.Export.URLTTL,
	}, deps.Logger)

	sweeper := retention.NewSweeper(historyRepo, retention.Config{
		Schedule:       cfg.Retention.Schedule,
		HistoryMaxAge:  cfg.Retention.HistoryMaxAge,
		HistoryMaxRows: cfg.Retention.HistoryMaxRows,
		ExportSpoolDir: cfg.Export.SpoolDir,
		ExportMaxAge:   cfg.Retention.ExportMaxAge,
	}, deps.Logger)

	return &App{
		Services: Services{
			Query:     querySvc,
			Profile:   profileSvc,
			Export:    exportSvc,
			Retention: sweeper,
		},
		Sessions:   sessions,
		APIKeyRepo: apiKeyRepo,
	}, nil
}

// buildPresigners creates one presigner per configured object store and, for
// each, the matching DuckDB secret so COPY TO can write there directly.
func buildPresigners(ctx context.Context, cfg *config.Config, deps Deps, logger *slog.Logger) (*export.Presigners, error) {
	p := &export.Presigners{}
	db := deps.Engine.DB()

	if cfg.HasS3Config() {
		opts := export.S3Options{KeyID: *cfg.S3KeyID, Secret: *cfg.S3Secret}
		if cfg.S3Endpoint != nil {
			opts.Endpoint = *cfg.S3Endpoint
		}
		if cfg.S3Region != nil {
			opts.Region = *cfg.S3Region
		}
		presigner, err := export.NewS3Presigner(opts)
		if err != nil {
			return nil, err
		}
		p.S3 = presigner

		if err := engine.CreateS3Secret(ctx, db, "export_s3", opts.KeyID, opts.Secret, opts.Endpoint, opts.Region, "path"); err != nil {
			logger.Warn("create S3 secret on engine", "error", err)
		}
		logger.Info("S3 exports enabled")
	}

	if cfg.HasAzureConfig() {
		presigner, err := export.NewAzurePresigner(export.AzureOptions{
			AccountName: *cfg.AzureAccount,
			AccountKey:  *cfg.AzureKey,
		})
		if err != nil {
			return nil, err
		}
		p.Azure = presigner

		if err := engine.CreateAzureSecret(ctx, db, "export_azure", *cfg.AzureAccount, *cfg.AzureKey, ""); err != nil {
			logger.Warn("create Azure secret on engine", "error", err)
		}
		logger.Info("Azure exports enabled")
	}

	if cfg.HasGCSConfig() {
		presigner, err := export.NewGCSPresigner(ctx, export.GCSOptions{KeyFilePath: *cfg.GCSKeyFilePath})
		if err != nil {
			return nil, err
		}
		p.GCS = presigner

		if err := engine.CreateGCSSecret(ctx, db, "export_gcs", *cfg.GCSKeyFilePath); err != nil {
			logger.Warn("create GCS secret on engine", "error", err)
		}
		logger.Info("GCS exports enabled")
	}

	return p, nil
}
