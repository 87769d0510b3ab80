package otcdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
)

// SwapRepo persists the swap aggregate and provides the atomic
// read-modify-write transition primitive spec.md §4.5 requires: every
// status change is read, mutated by a swapfsm function, and written back
// inside a single serializable transaction, so two concurrent observers of
// the same swap never race a transition.
type SwapRepo struct {
	db *sql.DB
}

// Insert stores a newly created swap.
func (r *SwapRepo) Insert(ctx context.Context, s models.Swap) error {
	return r.upsert(ctx, r.db, s)
}

// Get loads a swap by ID.
func (r *SwapRepo) Get(ctx context.Context, id uuid.UUID) (models.Swap, error) {
	row := r.db.QueryRowContext(ctx, selectSwapSQL+` WHERE id = $1`, id)
	s, err := scanSwap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Swap{}, fmt.Errorf("%w: swap %s", errkind.ErrMissingData, id)
	}
	return s, err
}

// ListByStatus returns every swap currently in status, the query the
// monitoring loop (C7) uses each tick.
func (r *SwapRepo) ListByStatus(ctx context.Context, status models.SwapStatus) ([]models.Swap, error) {
	rows, err := r.db.QueryContext(ctx, selectSwapSQL+` WHERE status = $1`, status)
	if err != nil {
		return nil, fmt.Errorf("%w: list swaps by status: %s", errkind.ErrPersistenceFailed, err)
	}
	defer rows.Close()

	var out []models.Swap
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Transition applies mutate to the current persisted state of swap id
// inside a serializable transaction, persisting the result only if mutate
// returns nil. This is the sole write path swapfsm callers should use:
// it guarantees the read and the write observe the same row version.
func (r *SwapRepo) Transition(ctx context.Context, id uuid.UUID, mutate func(*models.Swap) error) (models.Swap, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.Swap{}, fmt.Errorf("%w: begin tx: %s", errkind.ErrPersistenceFailed, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, selectSwapSQL+` WHERE id = $1 FOR UPDATE`, id)
	s, err := scanSwap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Swap{}, fmt.Errorf("%w: swap %s", errkind.ErrMissingData, id)
	}
	if err != nil {
		return models.Swap{}, err
	}

	if err := mutate(&s); err != nil {
		return models.Swap{}, err
	}

	if err := r.upsert(ctx, tx, s); err != nil {
		return models.Swap{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Swap{}, fmt.Errorf("%w: commit: %s", errkind.ErrPersistenceFailed, err)
	}
	return s, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *SwapRepo) upsert(ctx context.Context, x execer, s models.Swap) error {
	userDepositStatus, err := json.Marshal(s.UserDepositStatus)
	if err != nil {
		return fmt.Errorf("%w: marshal user deposit status: %s", errkind.ErrInvalidData, err)
	}
	mmDepositStatus, err := json.Marshal(s.MMDepositStatus)
	if err != nil {
		return fmt.Errorf("%w: marshal mm deposit status: %s", errkind.ErrInvalidData, err)
	}
	settlementStatus, err := json.Marshal(s.SettlementStatus)
	if err != nil {
		return fmt.Errorf("%w: marshal settlement status: %s", errkind.ErrInvalidData, err)
	}

	_, err = x.ExecContext(ctx, `
		INSERT INTO swaps (
			id, market_maker_id, quote_id, user_deposit_salt, user_deposit_address, mm_nonce,
			user_destination_address, user_refund_address, status,
			user_deposit_status, mm_deposit_status, settlement_status,
			failure_reason, failure_at, mm_notified_at, mm_private_key_sent_at,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET
			status = $9,
			user_deposit_status = $10,
			mm_deposit_status = $11,
			settlement_status = $12,
			failure_reason = $13,
			failure_at = $14,
			mm_notified_at = $15,
			mm_private_key_sent_at = $16,
			updated_at = $18`,
		s.ID, s.MarketMakerID, s.Quote.ID, s.UserDepositSalt[:], s.UserDepositAddress, s.MMNonce[:],
		s.UserDestinationAddress, s.UserRefundAddress, s.Status,
		userDepositStatus, mmDepositStatus, settlementStatus,
		s.FailureReason, s.FailureAt, s.MMNotifiedAt, s.MMPrivateKeySentAt,
		s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: upsert swap: %s", errkind.ErrPersistenceFailed, err)
	}
	return nil
}

const selectSwapSQL = `
	SELECT s.id, s.market_maker_id, s.quote_id, s.user_deposit_salt, s.user_deposit_address, s.mm_nonce,
		s.user_destination_address, s.user_refund_address, s.status,
		s.user_deposit_status, s.mm_deposit_status, s.settlement_status,
		s.failure_reason, s.failure_at, s.mm_notified_at, s.mm_private_key_sent_at,
		s.created_at, s.updated_at,
		q.id, q.market_maker_id, q.from_currency, q.from_amount, q.to_currency, q.to_amount, q.expires_at, q.created_at
	FROM swaps s JOIN quotes q ON q.id = s.quote_id`

func scanSwap(row rowScanner) (models.Swap, error) {
	var s models.Swap
	var userDepositSalt, mmNonce []byte
	var userDepositStatus, mmDepositStatus, settlementStatus []byte
	var fromCurrency, toCurrency []byte
	var fromAmount, toAmount string

	err := row.Scan(
		&s.ID, &s.MarketMakerID, &s.Quote.ID, &userDepositSalt, &s.UserDepositAddress, &mmNonce,
		&s.UserDestinationAddress, &s.UserRefundAddress, &s.Status,
		&userDepositStatus, &mmDepositStatus, &settlementStatus,
		&s.FailureReason, &s.FailureAt, &s.MMNotifiedAt, &s.MMPrivateKeySentAt,
		&s.CreatedAt, &s.UpdatedAt,
		&s.Quote.ID, &s.Quote.MarketMakerID, &fromCurrency, &fromAmount, &toCurrency, &toAmount, &s.Quote.ExpiresAt, &s.Quote.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Swap{}, err
		}
		return models.Swap{}, fmt.Errorf("%w: scan swap: %s", errkind.ErrPersistenceFailed, err)
	}

	copy(s.UserDepositSalt[:], userDepositSalt)
	copy(s.MMNonce[:], mmNonce)

	if err := json.Unmarshal(userDepositStatus, &s.UserDepositStatus); err != nil {
		return models.Swap{}, fmt.Errorf("%w: unmarshal user deposit status: %s", errkind.ErrInvalidData, err)
	}
	if err := json.Unmarshal(mmDepositStatus, &s.MMDepositStatus); err != nil {
		return models.Swap{}, fmt.Errorf("%w: unmarshal mm deposit status: %s", errkind.ErrInvalidData, err)
	}
	if err := json.Unmarshal(settlementStatus, &s.SettlementStatus); err != nil {
		return models.Swap{}, fmt.Errorf("%w: unmarshal settlement status: %s", errkind.ErrInvalidData, err)
	}
	if err := json.Unmarshal(fromCurrency, &s.Quote.From.Currency); err != nil {
		return models.Swap{}, fmt.Errorf("%w: unmarshal from currency: %s", errkind.ErrInvalidData, err)
	}
	if err := json.Unmarshal(toCurrency, &s.Quote.To.Currency); err != nil {
		return models.Swap{}, fmt.Errorf("%w: unmarshal to currency: %s", errkind.ErrInvalidData, err)
	}
	amt, err := models.ParseAmount(fromAmount)
	if err != nil {
		return models.Swap{}, err
	}
	s.Quote.From.Amount = amt
	amt, err = models.ParseAmount(toAmount)
	if err != nil {
		return models.Swap{}, err
	}
	s.Quote.To.Amount = amt

	return s, nil
}
