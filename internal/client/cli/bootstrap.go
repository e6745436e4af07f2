package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophchest/internal/client/chest"
	"github.com/dmitrijs2005/gophchest/internal/client/client"
	"github.com/dmitrijs2005/gophchest/internal/client/config"
	"github.com/dmitrijs2005/gophchest/internal/client/lastopened"
	"github.com/dmitrijs2005/gophchest/internal/client/remote"
	"github.com/dmitrijs2005/gophchest/internal/client/services"
	"github.com/dmitrijs2005/gophchest/internal/common"
	"github.com/dmitrijs2005/gophchest/internal/filex"
	"github.com/dmitrijs2005/gophchest/internal/logging"
	"golang.org/x/oauth2"
)

// Bootstrap opens the local database and wires an App for cfg. The returned
// function closes the database.
func Bootstrap(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, func(), error) {
	dbPath, err := filex.EnsureParentDir(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := client.InitDatabase(ctx, dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing database: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	store, auth, err := newStore(ctx, cfg, db, os.Stdout, logger)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	logger.Info(ctx, "client started", "storage", cfg.Storage, "db", dbPath)

	app := NewApp(cfg, Deps{
		Chest:  chest.New(cfg.Codec()),
		Sync:   services.NewSyncService(store, logger),
		Last:   lastopened.New(client.NewRepositories(db).Metadata),
		Auth:   auth,
		Logger: logger,
	})
	return app, closeDB, nil
}

// newStore builds the remote store named by cfg.Storage. For the drive it
// authorizes silently when a token is cached and falls back to the device
// flow otherwise.
func newStore(ctx context.Context, cfg *config.Config, db *sql.DB, out io.Writer, logger logging.Logger) (remote.Store, services.AuthService, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return remote.NewMemoryStore(), nil, nil
	case config.StorageS3:
		store, err := remote.NewS3Store(ctx, remote.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		return store, nil, err
	case config.StorageDrive:
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage %q", common.ErrorValidation, cfg.Storage)
	}

	if cfg.OAuth.ClientID == "" {
		return nil, nil, fmt.Errorf("%w: oauth client_id is not configured", common.ErrorValidation)
	}
	auth := services.NewAuthService(oauthConfig(cfg), db, out, logger)

	tok, err := auth.Authorize(ctx, services.ModeImmediate)
	if errors.Is(err, common.ErrorUnauthorized) {
		tok, err = auth.Authorize(ctx, services.ModePrompt)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error authorizing: %w", err)
	}
	return remote.NewDriveStore(cfg.Drive.APIURL, cfg.Drive.UploadURL, auth.TokenSource(ctx, tok)), auth, nil
}

func oauthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		Scopes:       cfg.OAuth.Scopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: cfg.OAuth.DeviceAuthURL,
			TokenURL:      cfg.OAuth.TokenURL,
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}
