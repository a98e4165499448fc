package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/advdiff/internal/cache"
	"github.com/hpungsan/advdiff/internal/config"
	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/logging"
	"github.com/hpungsan/advdiff/internal/ops"
	"github.com/hpungsan/advdiff/internal/source"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	app := newCLIApp(openEnv)
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// baseDir returns ~/.advdiff, home of the global config and the dataset cache.
func baseDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".advdiff"), nil
}

// openEnv builds the operation environment from the global flags and the
// merged global and repo config. The returned cleanup closes the cache and
// flushes the logger.
func openEnv(c *cli.Context) (ops.Env, func(), error) {
	logger, err := logging.New(c.String("log-level"))
	if err != nil {
		return ops.Env{}, nil, errors.NewInvalidRequest(err.Error())
	}

	dir, err := baseDir()
	if err != nil {
		return ops.Env{}, nil, errors.NewInternal(err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.LoadWithRepo(dir, cwd)
	if err != nil {
		return ops.Env{}, nil, errors.NewInvalidRequest(fmt.Sprintf("failed to load config: %v", err))
	}

	transport := source.Transport{
		VerifyTLS: !cfg.InsecureSkipVerify && !c.Bool("insecure"),
		ProxyURL:  cfg.ProxyURL,
		Timeout:   cfg.Timeout(),
	}

	env := ops.Env{
		Config: cfg,
		Logger: logger,
		Remote: source.NewHub(source.HubOptions{
			BaseURL:     cfg.HubURL,
			Transport:   transport,
			Token:       cfg.Token(),
			PageSize:    cfg.PageSize,
			Concurrency: cfg.FetchConcurrency,
			Logger:      logger,
		}),
	}

	cleanup := func() { _ = logger.Sync() }

	if cfg.DisableCache || c.Bool("no-cache") {
		logger.Debug("dataset cache disabled")
		return env, cleanup, nil
	}

	database, err := cache.Init(dir)
	if err != nil {
		// The comparison still works without a cache; it is just slower.
		logger.Warn("dataset cache unavailable", zap.Error(err))
		return env, cleanup, nil
	}
	env.DB = database

	return env, func() {
		database.Close()
		_ = logger.Sync()
	}, nil
}
