package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/plumtrips/backend/internal/api/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, user_agent, ip, created_at, last_seen_at, expires_at, revoked_at`

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, user_agent, ip, created_at, last_seen_at, expires_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.UserAgent, s.IP,
		s.CreatedAt, s.LastSeenAt, s.ExpiresAt, mapOptionalTime(s.RevokedAt),
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *sessionsRepo) ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var (
			s         domain.Session
			revokedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.UserAgent, &s.IP,
			&s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt, &revokedAt); err != nil {
			return nil, err
		}
		s.RevokedAt = mapNullTimePtr(revokedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) TouchSession(ctx context.Context, id string, seenAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE id = ?`, seenAt, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) RevokeAllUserSessions(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`, at, userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, before)
	return err
}

func scanSession(row *sql.Row) (domain.Session, error) {
	var (
		s         domain.Session
		revokedAt sql.NullTime
	)

	err := row.Scan(&s.ID, &s.UserID, &s.UserAgent, &s.IP,
		&s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt, &revokedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.RevokedAt = mapNullTimePtr(revokedAt)
	return s, nil
}
