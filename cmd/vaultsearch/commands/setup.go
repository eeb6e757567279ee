// ABOUTME: Shared wiring for commands: configuration, logger, embedder and cache
// ABOUTME: Builds the search service the same way for the CLI and the MCP server
package commands

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/config"
	"github.com/harper/vaultsearch/internal/llm"
	"github.com/harper/vaultsearch/internal/search"
	"github.com/harper/vaultsearch/internal/storage/sqlite"
)

// newLogger returns a zap logger writing to stderr; stdout carries results and
// the MCP protocol
func newLogger() (*zap.Logger, error) {
	debug := os.Getenv("VAULTSEARCH_DEBUG") == "true" || os.Getenv("VAULTSEARCH_DEBUG") == "1"
	cfg := zap.NewProductionConfig()
	if debug || verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	switch {
	case quiet:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	case debug || verbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// runtime holds what a command needs to open the search service
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	embedder llm.Embedder
	cache    *sqlite.DB
}

// setupLogging loads .env if present, then builds the logger so
// VAULTSEARCH_DEBUG may come from either
func setupLogging() (*zap.Logger, error) {
	envErr := godotenv.Load()
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	if envErr != nil {
		logger.Debug("no .env file loaded", zap.Error(envErr))
	}
	return logger, nil
}

// newRuntime loads configuration and builds the embedder. Embedder problems
// are logged, not returned, so find_related still works without one.
func newRuntime(logger *zap.Logger) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apperr.Wrap(apperr.IndexLoad, err, "invalid configuration")
	}

	rt := &runtime{cfg: cfg, logger: logger}

	client, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
		APIKey:     cfg.OpenAIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.EmbeddingModel,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	if err != nil {
		logger.Warn("query embedder unavailable; semantic_search and get_context_blocks will fail", zap.Error(err))
		return rt, nil
	}
	rt.embedder = client

	if cfg.CacheDisabled {
		return rt, nil
	}
	path := cfg.CachePath
	if path == "" {
		path = sqlite.DefaultDBPath()
	}
	db, err := sqlite.Open(path)
	if err != nil {
		logger.Warn("embedding cache unavailable", zap.String("path", path), zap.Error(err))
		return rt, nil
	}
	rt.cache = db
	rt.embedder = llm.NewCachedEmbedder(client, sqlite.NewEmbeddingStore(db), logger)
	logger.Debug("embedding cache opened", zap.String("path", path))

	return rt, nil
}

// openService loads the vault index and notes
func (rt *runtime) openService(ctx context.Context) (*search.Service, error) {
	return search.Open(ctx, search.Options{
		VaultPath:           rt.cfg.VaultPath,
		ModelKey:            rt.cfg.ModelKey,
		SkipMalformed:       rt.cfg.SkipMalformed,
		BlockFloor:          rt.cfg.BlockFloor,
		BlockMode:           rt.cfg.BlockMode,
		BlockMaxLines:       rt.cfg.BlockMaxLines,
		BlockCandidateNotes: rt.cfg.BlockCandidateNotes,
		Embedder:            rt.embedder,
		Logger:              rt.logger,
	})
}

// Close releases the cache database
func (rt *runtime) Close() {
	if rt.cache != nil {
		if err := rt.cache.Close(); err != nil {
			rt.logger.Warn("closing embedding cache", zap.Error(err))
		}
	}
}

// openCLI is the one-shot path used by search, related, blocks and stats
func openCLI(ctx context.Context) (*runtime, *search.Service, error) {
	logger, err := setupLogging()
	if err != nil {
		return nil, nil, err
	}

	rt, err := newRuntime(logger)
	if err != nil {
		return nil, nil, err
	}
	svc, err := rt.openService(ctx)
	if err != nil {
		rt.Close()
		return nil, nil, err
	}
	return rt, svc, nil
}
