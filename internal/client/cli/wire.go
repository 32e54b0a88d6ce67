package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stegkeeper/internal/auth"
	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/config"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/stegkeeper/internal/client/services"
	"github.com/dmitrijs2005/stegkeeper/internal/client/session"
	"github.com/dmitrijs2005/stegkeeper/internal/client/storage"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
)

// Build wires an App from cfg: the local database, the audit sink, the
// result store and the service client. The saved token, if any, is
// restored. The returned function releases the databases.
func Build(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, func(), error) {
	db, err := client.InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing database: %w", err)
	}
	closers := []func() error{db.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	auditDB, driver, err := openAudit(ctx, cfg, db)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if auditDB != db {
		closers = append(closers, auditDB.Close)
	}

	recorder, err := services.NewAuditRecorder(auditDB, driver, cfg.HistoryPollInterval, log.With("component", "audit"))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	results, err := storage.New(cfg.StorageOptions())
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	provider := auth.NewTokenProvider([]byte(cfg.TokenSecret))
	api := client.NewHTTPClient(cfg.ServiceURL, cfg.RequestTimeout, provider)

	authService := services.NewAuthService(api, metadata.NewSQLiteRepository(db), provider, log.With("component", "auth"))
	if id, ok := authService.Restore(ctx); ok {
		log.Info(ctx, "restored identity", "owner", id.OwnerID)
	}

	sess, err := session.New(models.MediaImage, models.DirectionEncode, session.Deps{
		Executor: services.NewExecutor(api, provider, recorder, log.With("component", "executor")),
		Checker:  api,
		Results:  results,
		Log:      log.With("component", "session"),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	app := NewApp(Deps{
		Config:   cfg,
		Auth:     authService,
		Identity: provider,
		Session:  sess,
		Audit:    recorder,
		Keys:     services.NewKeyService(api, cfg.OutputDir, log.With("component", "keys")),
		Log:      log,
	})
	return app, cleanup, nil
}

// openAudit returns the audit sink database. The SQLite sink shares the
// local database unless a separate DSN is configured.
func openAudit(ctx context.Context, cfg *config.Config, local *sql.DB) (*sql.DB, string, error) {
	driver, dsn := cfg.AuditTarget()
	switch driver {
	case client.DriverSQLite:
		if dsn == cfg.DatabaseDSN {
			return local, driver, nil
		}
		db, err := client.InitDatabase(ctx, dsn)
		return db, driver, err
	case client.DriverPostgres:
		if dsn == "" {
			return nil, "", errors.New("audit_dsn is required for the postgres audit sink")
		}
		db, err := client.InitAuditDatabase(ctx, dsn)
		return db, driver, err
	}
	return nil, "", fmt.Errorf("unsupported audit driver %q", driver)
}
