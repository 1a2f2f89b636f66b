package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/plumtrips/backend/internal/api/domain"
	"github.com/plumtrips/backend/internal/api/store"
)

type ssoTicketsRepo struct {
	db dbtx
}

func (r *ssoTicketsRepo) CreateTicket(ctx context.Context, tk domain.SSOTicket) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sso_tickets (jti, aud, user_id, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tk.JTI, tk.Audience, tk.UserID,
		tk.ExpiresAt, mapOptionalTime(tk.UsedAt), tk.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *ssoTicketsRepo) GetTicketByJTI(ctx context.Context, jti string) (domain.SSOTicket, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT jti, aud, user_id, expires_at, used_at, created_at
		FROM sso_tickets WHERE jti = ?`, jti)

	var (
		tk     domain.SSOTicket
		usedAt sql.NullTime
	)
	err := row.Scan(&tk.JTI, &tk.Audience, &tk.UserID, &tk.ExpiresAt, &usedAt, &tk.CreatedAt)
	if err != nil {
		return domain.SSOTicket{}, mapNotFound(err)
	}

	tk.UsedAt = mapNullTimePtr(usedAt)
	return tk, nil
}

// MarkTicketUsed is the single-use gate. The conditional update means two
// concurrent redemptions cannot both succeed: the loser sees zero rows
// affected and gets ErrAlreadyUsed.
func (r *ssoTicketsRepo) MarkTicketUsed(ctx context.Context, jti string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sso_tickets SET used_at = ? WHERE jti = ? AND used_at IS NULL`, at, jti)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing updated: either the ticket never existed or it was already used.
	_, err = r.GetTicketByJTI(ctx, jti)
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrAlreadyUsed
}

func (r *ssoTicketsRepo) DeleteExpiredTickets(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sso_tickets WHERE expires_at < ?`, before)
	return err
}
