package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/relaylabs/leadmatch/internal/calibration"
	"github.com/relaylabs/leadmatch/internal/engine"
	"github.com/relaylabs/leadmatch/internal/judge"
	"github.com/relaylabs/leadmatch/internal/similarity"
	"github.com/relaylabs/leadmatch/internal/storage"
	"github.com/relaylabs/leadmatch/internal/strategy"
)

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "leadmatch", "leadmatch.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// buildEngine wires the matching engine from configuration. A missing
// judgment credential is not fatal: runs degrade to heuristic scoring.
func buildEngine(ctx context.Context, store *storage.SQLiteStorage) (*engine.Engine, func(), error) {
	selector := strategy.NewSelector(strategy.Config{
		LargeBatch: viper.GetInt("strategy.large_batch"),
	})

	eng := engine.New(store, selector, engine.Config{
		MaxConcurrentJudgments: viper.GetInt("engine.max_concurrent_judgments"),
	}, slog.Default())

	cleanup := func() {}

	if baseURL := viper.GetString("similarity.base_url"); baseURL != "" {
		estimator, err := similarity.NewClient(similarity.Config{
			BaseURL: baseURL,
			APIKey:  viper.GetString("similarity.api_key"),
			Model:   viper.GetString("similarity.model"),
			Timeout: viper.GetDuration("similarity.timeout"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create similarity client: %w", err)
		}
		eng.WithSimilarity(estimator)
	}

	providerName := viper.GetString("judgment.provider")
	apiKey := viper.GetString("judgment.api_key")
	if providerName != "" && apiKey != "" {
		provider, err := judge.NewProvider(ctx, judge.Config{
			Provider:    providerName,
			APIKey:      apiKey,
			Model:       viper.GetString("judgment.model"),
			BaseURL:     viper.GetString("judgment.base_url"),
			Temperature: viper.GetFloat64("judgment.temperature"),
			MaxTokens:   viper.GetInt("judgment.max_tokens"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create judgment provider: %w", err)
		}

		oracle := judge.NewOracle(provider, judge.OracleConfig{
			Timeout:       viper.GetDuration("judgment.timeout"),
			CacheTTL:      viper.GetDuration("judgment.cache_ttl"),
			CacheCapacity: viper.GetInt("judgment.cache_capacity"),
		}, slog.Default())
		eng.WithOracle(oracle)
		cleanup = oracle.Close
	} else {
		slog.Warn("no judgment provider configured, runs will use heuristic scoring only")
	}

	calibrator := calibration.NewCalibrator(store, calibration.Config{
		MinFeedback:     viper.GetInt("calibration.min_feedback"),
		RefreshInterval: refreshInterval(),
	}, slog.Default())
	eng.WithCalibrator(calibrator)

	return eng, cleanup, nil
}

func refreshInterval() time.Duration {
	if d := viper.GetDuration("calibration.refresh_interval"); d > 0 {
		return d
	}
	return 0
}
