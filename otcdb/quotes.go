package otcdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
)

// QuoteRepo persists MM-issued quotes.
type QuoteRepo struct {
	db *sql.DB
}

// Insert stores a newly received quote.
func (r *QuoteRepo) Insert(ctx context.Context, q models.Quote) error {
	fromCurrency, err := json.Marshal(q.From.Currency)
	if err != nil {
		return fmt.Errorf("%w: marshal from currency: %s", errkind.ErrInvalidData, err)
	}
	toCurrency, err := json.Marshal(q.To.Currency)
	if err != nil {
		return fmt.Errorf("%w: marshal to currency: %s", errkind.ErrInvalidData, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO quotes (id, market_maker_id, from_currency, from_amount, to_currency, to_amount, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.MarketMakerID, fromCurrency, q.From.AmountString(), toCurrency, q.To.AmountString(), q.ExpiresAt, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert quote: %s", errkind.ErrPersistenceFailed, err)
	}
	return nil
}

// Get looks up a quote by ID.
func (r *QuoteRepo) Get(ctx context.Context, id uuid.UUID) (models.Quote, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, market_maker_id, from_currency, from_amount, to_currency, to_amount, expires_at, created_at
		FROM quotes WHERE id = $1`, id)
	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Quote{}, errkind.ErrQuoteNotFound
	}
	return q, err
}

// DeleteExpired removes quotes whose expiry has passed, returning how many
// were removed. Quotes still referenced by a swap are kept, since a swap
// reads its quote through the quotes table.
func (r *QuoteRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE expires_at < $1 AND NOT EXISTS (SELECT 1 FROM swaps WHERE swaps.quote_id = quotes.id)`, now)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired quotes: %s", errkind.ErrPersistenceFailed, err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuote(row rowScanner) (models.Quote, error) {
	var q models.Quote
	var fromCurrency, toCurrency []byte
	var fromAmount, toAmount string

	if err := row.Scan(&q.ID, &q.MarketMakerID, &fromCurrency, &fromAmount, &toCurrency, &toAmount, &q.ExpiresAt, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Quote{}, err
		}
		return models.Quote{}, fmt.Errorf("%w: scan quote: %s", errkind.ErrPersistenceFailed, err)
	}

	if err := json.Unmarshal(fromCurrency, &q.From.Currency); err != nil {
		return models.Quote{}, fmt.Errorf("%w: unmarshal from currency: %s", errkind.ErrInvalidData, err)
	}
	if err := json.Unmarshal(toCurrency, &q.To.Currency); err != nil {
		return models.Quote{}, fmt.Errorf("%w: unmarshal to currency: %s", errkind.ErrInvalidData, err)
	}
	amt, err := models.ParseAmount(fromAmount)
	if err != nil {
		return models.Quote{}, err
	}
	q.From.Amount = amt
	amt, err = models.ParseAmount(toAmount)
	if err != nil {
		return models.Quote{}, err
	}
	q.To.Amount = amt

	return q, nil
}
