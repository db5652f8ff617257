package internal

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/rest"
	"chat-relay/infrastructure/ws"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/storage"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
)

// App holds every component of the server, wired together.
type App struct {
	log        *slog.Logger
	db         *badger.DB
	index      *bluge.Writer
	Registry   *runtime.Registry
	Supervisor *workers.Supervisor
	Handler    http.Handler
}

// NewApp opens the stores and builds the components bottom-up.
// The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, log *slog.Logger, config Config) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	charReplacement, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}

	db, err := badger.Open(buildBadgerOpts(ctx, config, log))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	app := &App{log: log, db: db}

	app.index, err = bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}

	if err = app.build(config, charReplacement); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(config Config, charReplacement rune) error {
	log := a.log

	// Stores
	userRepository := repositories.NewUserRepository(a.db)
	messageRepository := repositories.NewMessageRepository(a.db, log, config.LimitMessages)
	searchIndex := repositories.NewSearchIndex(a.index, log)
	media, err := storage.NewDiskMediaStore(log, config.MediaDir, config.MediaBaseURL, config.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("media store: %w", err)
	}

	// Moderation
	censored, err := moderation.NewCensoredLoader(moderation.Dictionaries).LoadAll("censored")
	if err != nil {
		return fmt.Errorf("censored dictionaries: %w", err)
	}
	log.Info("Censored dictionaries loaded", "languages", censored.Languages(), "words", len(censored.Words))
	policy, err := moderation.NewPolicy(censored, charReplacement, log)
	if err != nil {
		return err
	}

	// Live delivery
	a.Registry = runtime.NewRegistry()
	fanout := runtime.NewFanout(log, a.Registry, config.PushTimeout)
	broadcaster := runtime.NewBroadcaster(log, a.Registry, fanout)
	dispatcher := runtime.NewDispatcher(log, a.Registry, fanout, config.DeliveryBroadcastAll)
	sessions := runtime.NewSessionManager(log, a.Registry, broadcaster)

	a.Supervisor = workers.NewSupervisor(log, config.RestartInterval)
	a.Supervisor.Add(
		broadcaster,
		workers.NewHeartbeatWorker(log, a.Registry, config.StatsInterval),
	)

	// Services
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(log, userRepository, tokens, media)
	chatService := services.NewChatService(
		log, userRepository, messageRepository, searchIndex, media, policy, dispatcher,
		config.SearchLimit, config.MaxTextLength,
	)

	// Transports
	wsHandler := ws.NewHandler(log, sessions, config.Origins(), ws.Options{
		BufferSize:   config.ConnectionBufferSize,
		PingInterval: config.PingInterval,
		PongTimeout:  config.PongTimeout,
		WriteTimeout: config.WriteTimeout,
		MaxFrameSize: config.MaxFrameSize,
	})
	a.Handler = rest.NewRouter(log, rest.Dependencies{
		Auth:      rest.NewAuthHandler(log, authService, config.AuthTokenDuration, config.CookieSecure),
		Chat:      rest.NewChatHandler(log, chatService),
		Identity:  tokens,
		Registry:  a.Registry,
		WebSocket: wsHandler.Serve,
	}, rest.Options{
		AllowedOrigins: config.Origins(),
		TokenDuration:  config.AuthTokenDuration,
		CookieSecure:   config.CookieSecure,
		MediaDir:       config.MediaDir,
		MediaPath:      mediaPath(config.MediaBaseURL),
		MaxUploadBytes: config.MaxUploadBytes,
	})
	return nil
}

// DB is exposed for the debug inspector.
func (a *App) DB() *badger.DB {
	return a.db
}

// Run blocks until ctx is canceled and every background worker returned.
func (a *App) Run(ctx context.Context) {
	a.Supervisor.Run(ctx)
}

// Close releases the stores. Live connections are not tracked here,
// they end with the HTTP server.
func (a *App) Close() error {
	var firstErr error
	if a.index != nil {
		a.log.Info("Closing Bluge...")
		if err := a.index.Close(); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		a.log.Info("Closing BadgerDB...")
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildBadgerOpts(ctx context.Context, config Config, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}

// mediaPath keeps the path part of MEDIA_BASE_URL, which may be absolute.
func mediaPath(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Path == "" {
		return "/media"
	}
	return u.Path
}
