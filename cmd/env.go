package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/acwi-research/culture-cli/internal/culture"
	"github.com/acwi-research/culture-cli/internal/store"
)

// appEnv holds the store and the culture engine shared by the commands.
type appEnv struct {
	Store      store.Store
	Scorer     *culture.Scorer
	Aggregator *culture.Aggregator
	Normalizer *culture.Normalizer
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the configured store, runs migrations, and wires the scorer,
// aggregator, and normalizer. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var lexicon *culture.Lexicon
	if cfg.Culture.LexiconPath != "" {
		lexicon, err = culture.LoadLexicon(cfg.Culture.LexiconPath)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		zap.L().Info("custom lexicon loaded", zap.String("path", cfg.Culture.LexiconPath))
	}

	scorer := culture.NewScorer(lexicon)
	cache := culture.NewMaxCache(st, cfg.Culture.MaxCacheTTL())

	return &appEnv{
		Store:      st,
		Scorer:     scorer,
		Aggregator: culture.NewAggregator(st, scorer),
		Normalizer: culture.NewNormalizer(cache),
	}, nil
}

// profile returns the company's normalized culture profile, serving from the
// store-backed cache when possible. A company with no reviews yields nil.
func (e *appEnv) profile(ctx context.Context, company string) (*culture.CompanyProfile, error) {
	cached, err := e.Store.CachedProfile(ctx, company)
	if err != nil {
		zap.L().Warn("profile cache read failed", zap.String("company", company), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	p, err := e.Aggregator.Aggregate(ctx, company)
	if err != nil || p == nil {
		return nil, err
	}
	np, err := e.Normalizer.Normalize(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := e.Store.CacheProfile(ctx, np); err != nil {
		zap.L().Warn("profile cache write failed", zap.String("company", company), zap.Error(err))
	}
	return np, nil
}

// allProfiles builds normalized profiles for every company with reviews.
func (e *appEnv) allProfiles(ctx context.Context) ([]*culture.CompanyProfile, error) {
	companies, err := e.Store.Companies(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]*culture.CompanyProfile, 0, len(companies))
	for _, company := range companies {
		p, err := e.profile(ctx, company)
		if err != nil {
			return nil, err
		}
		if p != nil {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "culture.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
