package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/restwell/restwell-pairing/internal/rwpaird/database"
	werrors "github.com/restwell/restwell-pairing/internal/rwpaird/errors"
	"github.com/restwell/restwell-pairing/internal/rwpaird/pairing"
)

// Repository persists pairing tokens in PostgreSQL
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// createPendingRetries bounds how often an issuance retries after losing
// an insert race on the pending-slot unique index
const createPendingRetries = 3

// CreatePending supersedes any pending token for the new token's
// (user, device) slot and inserts the new token in one transaction.
// The partial unique index idx_pairing_tokens_pending_slot backs the
// single-pending invariant: when two issuances race, one insert fails
// with a unique violation and is retried, the retry superseding the
// winner's token.
func (r *Repository) CreatePending(ctx context.Context, t *pairing.Token) (int, error) {
	const op = "PairingTokenRepository.CreatePending"

	for attempt := 0; attempt < createPendingRetries; attempt++ {
		var superseded int
		err := database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
			result, err := tx.ExecContext(ctx, `
				UPDATE pairing_tokens
				SET status = $3, expires_at = $4
				WHERE user_id = $1 AND device_id = $2 AND status = $5
			`, t.UserID, t.DeviceID, pairing.StatusExpired, t.IssuedAt, pairing.StatusPending)
			if err != nil {
				return err
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return err
			}
			superseded = int(rows)

			_, err = tx.ExecContext(ctx, `
				INSERT INTO pairing_tokens (
					token, user_id, device_id, device_type, device_name,
					issued_at, expires_at, status, redeemed_at, redeemed_by
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`,
				t.Token,
				t.UserID,
				t.DeviceID,
				t.DeviceType,
				t.DeviceName,
				t.IssuedAt,
				t.ExpiresAt,
				t.Status,
				t.RedeemedAt,
				t.RedeemedBy,
			)
			return err
		})
		if err == nil {
			return superseded, nil
		}
		if werrors.IsConflict(database.MapError(err, op)) {
			r.logger.Warn("pairing token insert lost the pending-slot race, retrying",
				"userId", t.UserID,
				"deviceId", t.DeviceID,
				"attempt", attempt+1,
			)
			continue
		}
		return 0, werrors.NewError("DB_ERROR", "failed to create pending token", op, err)
	}

	return 0, werrors.NewError("CONFLICT", "pairing token issuance kept losing the pending-slot race", op, werrors.ErrConflict)
}

func (r *Repository) FindByToken(ctx context.Context, token string) (*pairing.Token, error) {
	const op = "PairingTokenRepository.FindByToken"

	t, err := scanToken(r.db.QueryRowContext(ctx, `
		SELECT token, user_id, device_id, device_type, device_name,
		       issued_at, expires_at, status, redeemed_at, redeemed_by
		FROM pairing_tokens
		WHERE token = $1
	`, token))

	if err == sql.ErrNoRows {
		return nil, pairing.ErrTokenNotFound
	}
	if err != nil {
		return nil, werrors.NewError("DB_ERROR", "failed to find pairing token", op, err)
	}
	return t, nil
}

// Redeem performs the pending->redeemed transition as a single
// compare-and-swap UPDATE so that exactly one concurrent caller wins.
// Losers are classified by a follow-up read of the surviving row.
func (r *Repository) Redeem(ctx context.Context, token, fingerprint string, now time.Time) (*pairing.Token, error) {
	const op = "PairingTokenRepository.Redeem"

	// Read committed is enough: the CAS UPDATE serializes concurrent
	// redeemers on the row lock.
	txOpts := &database.TxOptions{Isolation: database.LevelReadCommitted}

	var redeemed *pairing.Token
	err := database.RunInTx(ctx, r.db, txOpts, func(tx *database.Tx) error {
		// A token is live up to and including its expiry instant.
		t, scanErr := scanToken(tx.QueryRowContext(ctx, `
			UPDATE pairing_tokens
			SET status = $2, redeemed_at = $3, redeemed_by = $4
			WHERE token = $1
			  AND status = $5
			  AND expires_at >= $3
			RETURNING token, user_id, device_id, device_type, device_name,
			          issued_at, expires_at, status, redeemed_at, redeemed_by
		`, token, pairing.StatusRedeemed, now, fingerprint, pairing.StatusPending))

		if scanErr == sql.ErrNoRows {
			t, scanErr = r.classifyRedeemFailure(ctx, tx, token, fingerprint, now)
		}
		if scanErr != nil {
			return scanErr
		}

		redeemed = t
		return nil
	})

	if err != nil {
		switch err {
		case pairing.ErrTokenNotFound, pairing.ErrTokenExpired, pairing.ErrAlreadyRedeemed:
			return nil, err
		}
		return nil, werrors.NewError("DB_ERROR", "failed to redeem pairing token", op, err)
	}
	return redeemed, nil
}

// classifyRedeemFailure distinguishes why the CAS matched no row. A
// token already redeemed by the same fingerprint is returned as a
// successful replay so the caller can rerun its idempotent follow-ups.
func (r *Repository) classifyRedeemFailure(ctx context.Context, tx *database.Tx, token, fingerprint string, now time.Time) (*pairing.Token, error) {
	t, err := scanToken(tx.QueryRowContext(ctx, `
		SELECT token, user_id, device_id, device_type, device_name,
		       issued_at, expires_at, status, redeemed_at, redeemed_by
		FROM pairing_tokens
		WHERE token = $1
	`, token))

	if err == sql.ErrNoRows {
		return nil, pairing.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	switch {
	case t.Status == pairing.StatusRedeemed:
		if t.RedeemedBy != nil && *t.RedeemedBy == fingerprint {
			return t, nil
		}
		return nil, pairing.ErrAlreadyRedeemed
	case t.Status == pairing.StatusExpired || now.After(t.ExpiresAt):
		return nil, pairing.ErrTokenExpired
	default:
		// Pending and unexpired yet the CAS missed: a concurrent
		// transaction is mid-flight; surface it as a race loss.
		return nil, pairing.ErrAlreadyRedeemed
	}
}

func (r *Repository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	const op = "PairingTokenRepository.DeleteExpiredBefore"

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pairing_tokens
		WHERE expires_at < $1 AND status <> $2
	`, cutoff, pairing.StatusRedeemed)
	if err != nil {
		return 0, werrors.NewError("DB_ERROR", "failed to delete expired tokens", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, werrors.NewError("DB_ERROR", "failed to get affected rows", op, err)
	}
	return int(rows), nil
}

// rowScanner covers sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanToken(row rowScanner) (*pairing.Token, error) {
	var t pairing.Token
	err := row.Scan(
		&t.Token,
		&t.UserID,
		&t.DeviceID,
		&t.DeviceType,
		&t.DeviceName,
		&t.IssuedAt,
		&t.ExpiresAt,
		&t.Status,
		&t.RedeemedAt,
		&t.RedeemedBy,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
