package otcdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
)

// ApiKeyRepo persists market-maker API-key whitelist entries.
type ApiKeyRepo struct {
	db *sql.DB
}

// Upsert inserts or replaces key, keyed by ID.
func (r *ApiKeyRepo) Upsert(ctx context.Context, key models.ApiKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, market_maker, hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET market_maker = $2, hash = $3`,
		key.ID, key.MarketMaker, key.Hash)
	if err != nil {
		return fmt.Errorf("%w: upsert api key: %s", errkind.ErrPersistenceFailed, err)
	}
	return nil
}

// Get looks up an API key by ID.
func (r *ApiKeyRepo) Get(ctx context.Context, id uuid.UUID) (models.ApiKey, error) {
	var key models.ApiKey
	row := r.db.QueryRowContext(ctx, `SELECT id, market_maker, hash FROM api_keys WHERE id = $1`, id)
	if err := row.Scan(&key.ID, &key.MarketMaker, &key.Hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ApiKey{}, errkind.ErrAuthFailure
		}
		return models.ApiKey{}, fmt.Errorf("%w: get api key: %s", errkind.ErrPersistenceFailed, err)
	}
	return key, nil
}

// All lists every whitelisted key.
func (r *ApiKeyRepo) All(ctx context.Context) ([]models.ApiKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, market_maker, hash FROM api_keys`)
	if err != nil {
		return nil, fmt.Errorf("%w: list api keys: %s", errkind.ErrPersistenceFailed, err)
	}
	defer rows.Close()

	var out []models.ApiKey
	for rows.Next() {
		var key models.ApiKey
		if err := rows.Scan(&key.ID, &key.MarketMaker, &key.Hash); err != nil {
			return nil, fmt.Errorf("%w: scan api key: %s", errkind.ErrPersistenceFailed, err)
		}
		out = append(out, key)
	}
	return out, rows.Err()
}
