package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	googleauth "loandesk-backend/internal/auth"
	"loandesk-backend/internal/documents"
	"loandesk-backend/internal/extract"
	"loandesk-backend/internal/shared/config"
	"loandesk-backend/internal/shared/server"
	"loandesk-backend/internal/shared/storage/db"
	sharedmongo "loandesk-backend/internal/shared/storage/mongo"
	"loandesk-backend/internal/shared/storage/object"
	localstore "loandesk-backend/internal/shared/storage/object/local"
	s3store "loandesk-backend/internal/shared/storage/object/s3"
	"loandesk-backend/internal/users"
)

// App holds shared dependencies built once at process start.
type App struct {
	Config config.Config
	Router *gin.Engine

	DB      *sql.DB
	Mongo   *mongodriver.Database
	Store   object.Store
	closeFn func(context.Context) error

	DocumentsRepo    documents.Repo
	UsersRepo        users.Repo
	DocumentsService *documents.Service
	UsersService     *users.Service
	DocumentsHandler *documents.Handler
	UsersHandler     *users.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	if err := buildMetadataStore(ctx, cfg, app); err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		Store:            app.Store,
		DocumentsHandler: app.DocumentsHandler,
		UsersHandler:     app.UsersHandler,
		GoogleAuth:       app.GoogleAuth,
	})

	return app, nil
}

// Close releases held connections. Safe to call on a partially built App.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			firstErr = err
		}
	}
	if a.closeFn != nil {
		if err := a.closeFn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildMetadataStore connects the configured backend: mongo, postgres (with
// embedded migrations) or in-memory. A dev-like environment degrades to
// memory when the backend is unreachable; production fails hard.
func buildMetadataStore(ctx context.Context, cfg config.Config, app *App) error {
	switch cfg.MetadataStore {
	case "mongo":
		database, closeFn, err := sharedmongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			if isDevLike(cfg.Env) {
				log.Printf("bootstrap: mongo connect failed; using in-memory repositories: %v", err)
				return nil
			}
			return err
		}
		app.Mongo = database
		app.closeFn = closeFn
		return nil

	case "postgres":
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			if isDevLike(cfg.Env) {
				log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
				return nil
			}
			return err
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return fmt.Errorf("run migrations: %w", err)
		}
		app.DB = sqlDB
		return nil

	case "memory":
		if !isDevLike(cfg.Env) {
			return fmt.Errorf("METADATA_STORE=memory is not allowed in %s", cfg.Env)
		}
		return nil

	default:
		return fmt.Errorf("unknown metadata store %q", cfg.MetadataStore)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	var docRepo documents.Repo
	var userRepo users.Repo

	switch {
	case app.Mongo != nil:
		docRepo = documents.NewMongoRepo(app.Mongo)
		userRepo = users.NewMongoRepo(app.Mongo)
	case app.DB != nil:
		docRepo = &documents.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	default:
		docRepo = documents.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	userSvc := users.NewService(userRepo)

	validator := documents.NewValidator(app.Config.AllowedMimeTypes, app.Config.MaxUploadBytes)
	recorder := documents.NewRecorder(docRepo)
	orchestrator := documents.NewOrchestrator(validator, app.Store, recorder, nil)
	if app.Config.ExtractSearchText {
		orchestrator.ExtractText = extract.Terms
	}
	locator := documents.NewLocator(app.Store, docRepo, app.Config.SignedURLExpiry)

	docSvc := documents.NewService(orchestrator, locator, docRepo, app.Store, userSvc)

	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.DocumentsRepo = docRepo
	app.UsersRepo = userRepo
	app.DocumentsService = docSvc
	app.UsersService = userSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc
}
