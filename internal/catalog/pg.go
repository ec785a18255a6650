package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/weatherwx/tileserve/internal/coord"
	"github.com/weatherwx/tileserve/internal/tileerr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// PGClient is the production Client, backed by Postgres for dataset
// records and Redis Pub/Sub for the ingestion-event bus, grounded on the
// same pgxpool + go-redis combination the rest of the domain stack uses.
type PGClient struct {
	pool   *pgxpool.Pool
	redis  *redis.Client
	logger *slog.Logger
}

// PGConfig configures a PGClient.
type PGConfig struct {
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
}

// NewPGClient connects to Postgres with the given pool sizing, in the
// style of geo-index's pgxpool.ParseConfig/NewWithConfig.
func NewPGClient(ctx context.Context, cfg PGConfig, redisClient *redis.Client, logger *slog.Logger) (*PGClient, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, tileerr.New(tileerr.PermanentIO, "catalog.NewPGClient", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, tileerr.New(tileerr.TransientIO, "catalog.NewPGClient", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("catalog database connection established", "max_conns", poolCfg.MaxConns)

	return &PGClient{pool: pool, redis: redisClient, logger: logger.With("component", "catalog")}, nil
}

func (c *PGClient) Close() { c.pool.Close() }

func (c *PGClient) FindDataset(q Query) (DatasetRecord, bool, error) {
	ctx := context.Background()

	var row pgx.Row
	if q.Latest {
		row = c.pool.QueryRow(ctx, `
			SELECT model, parameter, level, reference_time, forecast_hour,
			       storage_path, grid_rows, grid_cols,
			       min_lon, min_lat, max_lon, max_lat, uses_360_longitude,
			       projection, requires_full_grid, pyramid
			FROM dataset_records
			WHERE model = $1 AND parameter = $2 AND level = $3
			ORDER BY reference_time DESC, forecast_hour ASC
			LIMIT 1`, q.Model, q.Parameter, q.Level)
	} else {
		row = c.pool.QueryRow(ctx, `
			SELECT model, parameter, level, reference_time, forecast_hour,
			       storage_path, grid_rows, grid_cols,
			       min_lon, min_lat, max_lon, max_lat, uses_360_longitude,
			       projection, requires_full_grid, pyramid
			FROM dataset_records
			WHERE model = $1 AND parameter = $2 AND level = $3
			  AND reference_time = $4 AND forecast_hour = $5`,
			q.Model, q.Parameter, q.Level, q.RefTime, q.ForecastHour)
	}

	rec, err := scanDatasetRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return DatasetRecord{}, false, nil
		}
		return DatasetRecord{}, false, tileerr.New(tileerr.TransientIO, "catalog.FindDataset", err)
	}
	return rec, true, nil
}

func (c *PGClient) ListReferenceTimes(model, parameter, level string) ([]time.Time, error) {
	ctx := context.Background()
	rows, err := c.pool.Query(ctx, `
		SELECT DISTINCT reference_time FROM dataset_records
		WHERE model = $1 AND parameter = $2 AND level = $3
		ORDER BY reference_time ASC`, model, parameter, level)
	if err != nil {
		return nil, tileerr.New(tileerr.TransientIO, "catalog.ListReferenceTimes", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, tileerr.New(tileerr.DecodeError, "catalog.ListReferenceTimes", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ingestionChannel is the Redis Pub/Sub channel the catalog publishes
// IngestionEvents to and the coordinator subscribes on.
const ingestionChannel = "tileserve:ingestion"

// PublishIngested publishes an ingestion event. Called by the ingestion
// pipeline, which is outside this module's scope; exposed here so tests and
// the debug CLI can simulate it.
func (c *PGClient) PublishIngested(ctx context.Context, ev IngestionEvent) error {
	if c.redis == nil {
		return nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return tileerr.New(tileerr.InvalidInput, "catalog.PublishIngested", err)
	}
	if err := c.redis.Publish(ctx, ingestionChannel, b).Err(); err != nil {
		return tileerr.New(tileerr.TransientIO, "catalog.PublishIngested", err)
	}
	return nil
}

func (c *PGClient) Subscribe(onIngested func(IngestionEvent)) (func(), error) {
	if c.redis == nil {
		return func() {}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub := c.redis.Subscribe(ctx, ingestionChannel)

	go func() {
		ch := sub.Channel()
		for msg := range ch {
			var ev IngestionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				c.logger.Error("ingestion event unmarshal failed", "err", err)
				continue
			}
			onIngested(ev)
		}
	}()

	return func() {
		cancel()
		sub.Close()
	}, nil
}

func scanDatasetRecord(row pgx.Row) (DatasetRecord, error) {
	var rec DatasetRecord
	var projStr string
	var requiresFullGrid *bool
	var pyramidJSON []byte

	err := row.Scan(
		&rec.Model, &rec.Parameter, &rec.Level, &rec.ReferenceTime, &rec.ForecastHour,
		&rec.StoragePath, &rec.GridRows, &rec.GridCols,
		&rec.BBox.MinLon, &rec.BBox.MinLat, &rec.BBox.MaxLon, &rec.BBox.MaxLat, &rec.Uses360Longitude,
		&projStr, &requiresFullGrid, &pyramidJSON,
	)
	if err != nil {
		return DatasetRecord{}, err
	}

	variant, ok := coord.ParseProjectionVariant(projStr)
	if !ok {
		return DatasetRecord{}, fmt.Errorf("unknown projection variant %q", projStr)
	}
	rec.Projection = variant
	rec.RequiresFullGrid = requiresFullGrid

	if len(pyramidJSON) > 0 {
		if err := json.Unmarshal(pyramidJSON, &rec.Pyramid); err != nil {
			return DatasetRecord{}, err
		}
	}

	return rec, nil
}
