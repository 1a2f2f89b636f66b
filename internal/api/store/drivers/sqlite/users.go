package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/plumtrips/backend/internal/api/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, password_hash, full_name, phone, email_verified_at,
	roles, profile, co_travellers, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	// email column is COLLATE NOCASE so the comparison is case-insensitive
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return err
	}
	coTravellers, err := marshalCoTravellers(u.CoTravellers)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, phone, email_verified_at,
			roles, profile, co_travellers, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		strings.TrimSpace(u.Email),
		u.PasswordHash,
		u.FullName,
		u.Phone,
		mapOptionalTime(u.EmailVerifiedAt),
		strings.Join(u.Roles, " "),
		string(profile),
		coTravellers,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID, fullName, phone string, p domain.Profile) error {
	profile, err := json.Marshal(p)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET full_name = ?, phone = ?, profile = ?, updated_at = ?
		WHERE id = ?`,
		fullName, phone, string(profile), time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateCoTravellers(ctx context.Context, userID string, list []domain.CoTraveller) error {
	coTravellers, err := marshalCoTravellers(list)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET co_travellers = ?, updated_at = ? WHERE id = ?`,
		coTravellers, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email_verified_at = COALESCE(email_verified_at, ?), updated_at = ?
		WHERE id = ?`,
		at, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u            domain.User
		verifiedAt   sql.NullTime
		roles        string
		profile      string
		coTravellers string
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &verifiedAt,
		&roles, &profile, &coTravellers, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.EmailVerifiedAt = mapNullTimePtr(verifiedAt)
	u.Roles = splitRoles(roles)

	if err := json.Unmarshal([]byte(profile), &u.Profile); err != nil {
		return domain.User{}, err
	}
	if err := json.Unmarshal([]byte(coTravellers), &u.CoTravellers); err != nil {
		return domain.User{}, err
	}

	return u, nil
}

func splitRoles(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func marshalCoTravellers(list []domain.CoTraveller) (string, error) {
	if list == nil {
		list = []domain.CoTraveller{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}
