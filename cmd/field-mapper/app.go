package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"field-mapper/internal/cache"
	"field-mapper/internal/config"
	"field-mapper/internal/enhance"
	"field-mapper/internal/form"
	"field-mapper/internal/logging"
	"field-mapper/internal/match"
	"field-mapper/internal/plan"
	"field-mapper/internal/rules"
	"field-mapper/internal/store"
)

// app holds the wired components of one CLI invocation.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     store.Store
	catalog   *rules.Catalog
	templates *form.StaticRegistry
	orch      *plan.Orchestrator
	enhancer  enhance.Enhancer
	closers   []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func (a *app) init(ctx context.Context) error {
	var err error

	a.catalog, err = rules.Load(a.cfg.RulesPath)
	if err != nil {
		return err
	}

	a.templates, err = form.LoadTemplates(a.cfg.TemplatesPath)
	if err != nil {
		return err
	}

	if err := a.catalog.CheckTemplates(a.templates.All()); err != nil {
		return fmt.Errorf("templates do not match rules: %w", err)
	}

	a.store, err = openStore(ctx, a.cfg)
	if err != nil {
		return err
	}

	a.closers = append(a.closers, a.store.Close)

	c, err := a.openCache(ctx)
	if err != nil {
		return err
	}

	opts := match.DefaultOptions()
	opts.Threshold = a.cfg.MatchThreshold
	opts.LearnedThreshold = a.cfg.LearnedThreshold

	a.orch, err = plan.NewOrchestrator(plan.Deps{
		Templates: a.templates,
		Rules:     a.catalog,
		Matcher:   match.NewFieldMatcher(a.store, opts, a.logger.Named("match")),
		Audit:     a.store,
		Cache:     c,
	}, plan.Options{
		Parallelism: a.cfg.Parallelism,
		CacheTTL:    a.cfg.CacheTTL,
	}, a.logger.Named("plan"))
	if err != nil {
		return err
	}

	if a.cfg.EnhancementEnabled() {
		a.enhancer = enhance.NewOpenAIEnhancer(a.cfg.OpenAIAPIKey, enhance.Options{
			Model: a.cfg.OpenAIModel,
			RPS:   a.cfg.EnhanceRPS,
		}, a.logger.Named("enhance"))
	}

	return nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.DBDriver == config.DriverMemory {
		return store.NewMemoryStore(), nil
	}

	if cfg.DBDriver == config.DriverSQLite && isFilePath(cfg.DBDSN) {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	s, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func isFilePath(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

func (a *app) openCache(ctx context.Context) (cache.Cache, error) {
	if a.cfg.RedisAddr == "" {
		mc := cache.NewMemoryCache(a.cfg.CacheMaxEntries)
		a.closers = append(a.closers, mc.Close)

		return mc, nil
	}

	client, err := cache.DialRedis(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		return nil, err
	}

	a.closers = append(a.closers, client.Close)

	return cache.NewRedisCache(client, ""), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", zap.Error(err))
		}
	}

	_ = a.logger.Sync()
}
