package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/config"
	"github.com/David-Botos/data-refinery/pkg/connector"
	"github.com/David-Botos/data-refinery/pkg/engine/structural"
	"github.com/David-Botos/data-refinery/pkg/jobs"
	"github.com/David-Botos/data-refinery/pkg/loader"
	"github.com/David-Botos/data-refinery/pkg/model"
	"github.com/David-Botos/data-refinery/pkg/objectstore"
	"github.com/David-Botos/data-refinery/pkg/pipeline"
	"github.com/David-Botos/data-refinery/pkg/store"
)

func newRunner() (*pipeline.Runner, error) {
	return pipeline.NewRunner(cfg.PipelineOptions(), logger.Named("pipeline"))
}

// readLocalFile loads a dataset from disk and keeps the raw bytes for the
// structural checks that need them
func readLocalFile(path string) (*model.Dataset, *structural.FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fileType := loader.NormalizeType(objectstore.FileType(path))
	ds, err := loader.Load(data, fileType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}
	return ds, &structural.FileSource{Bytes: data, Type: fileType}, nil
}

// openStore opens the configured result store. The returned function
// releases it.
func openStore(ctx context.Context, driver, sqlitePath string) (*store.SQLStore, func(), error) {
	switch driver {
	case config.DriverSQLite:
		s, err := store.OpenSQLite(ctx, sqlitePath, logger.Named("store"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case config.DriverPostgres:
		conn, err := connector.NewConnectorFactory(cfg, logger).CreatePostgresConnector(ctx)
		if err != nil {
			return nil, nil, err
		}
		if schema := cfg.Postgres.StoreSchema; schema != "" {
			if err := conn.EnsureSchema(ctx, schema); err != nil {
				conn.Close()
				return nil, nil, err
			}
		}
		s, err := store.NewPostgresStore(ctx, conn.DB(), logger.Named("store"))
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return s, func() { _ = conn.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// openSources connects the object store and every configured warehouse
func openSources(ctx context.Context) (jobs.Sources, func(), error) {
	var (
		sources = jobs.Sources{Tables: make(map[string]jobs.TableLoader)}
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Failed to close source", zap.Error(err))
			}
		}
	}

	if cfg.ObjectStore != nil {
		ms, err := objectstore.NewMinioStore(cfg.ObjectStore, logger.Named("objectstore"))
		if err != nil {
			return sources, nil, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return sources, nil, err
		}
		sources.Objects = ms
	}

	factory := connector.NewConnectorFactory(cfg, logger)
	if cfg.Postgres != nil {
		conn, err := factory.CreatePostgresConnector(ctx)
		if err != nil {
			closeAll()
			return sources, nil, err
		}
		closers = append(closers, conn.Close)
		sources.Tables[connector.SourcePostgres] = conn
	}
	if cfg.Snowflake != nil {
		conn, err := factory.CreateSnowflakeConnector(ctx)
		if err != nil {
			closeAll()
			return sources, nil, err
		}
		closers = append(closers, conn.Close)
		sources.Tables[connector.SourceSnowflake] = conn
	}

	if sources.Objects == nil && len(sources.Tables) == 0 {
		return sources, nil, errors.New("no input source configured (set OBJECTSTORE_ENDPOINT, POSTGRES_DB or SNOWFLAKE_ACCOUNT)")
	}
	return sources, closeAll, nil
}
