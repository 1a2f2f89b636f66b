package store

import (
	"context"
	"errors"
	"time"

	"github.com/plumtrips/backend/internal/api/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrAlreadyUsed   = errors.New("store: already used")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. We can change having the sub-repos as methods later but we do it
// now so we can have more control and actively stop people from accidently
// doing transactions within transactions.
type Store interface {
	Users() Users
	Sessions() Sessions
	SSOTickets() SSOTickets

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., ticket redemption).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during password login and OAuth account linking.
	// Lookup is case-insensitive.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile replaces name, phone and profile details, bumps updated_at.
	UpdateProfile(ctx context.Context, userID, fullName, phone string, p domain.Profile) error

	// UpdateCoTravellers replaces the saved co-traveller list.
	UpdateCoTravellers(ctx context.Context, userID string, list []domain.CoTraveller) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// MarkEmailVerified records the verification timestamp. Idempotent.
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns a session by id.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// ListUserSessions returns a user's sessions, newest first.
	ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error)

	// TouchSession records activity for sliding "last seen" tracking.
	TouchSession(ctx context.Context, id string, seenAt time.Time) error

	// RevokeSession sets revoked_at for a single session.
	RevokeSession(ctx context.Context, id string, at time.Time) error

	// RevokeAllUserSessions bulk revocation (e.g., password change).
	RevokeAllUserSessions(ctx context.Context, userID string, at time.Time) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context, before time.Time) error
}

type SSOTickets interface {
	// CreateTicket writes a freshly minted handoff ticket.
	CreateTicket(ctx context.Context, tk domain.SSOTicket) error

	// GetTicketByJTI returns a ticket regardless of use/expiry state; callers
	// decide which failure to surface.
	GetTicketByJTI(ctx context.Context, jti string) (domain.SSOTicket, error)

	// MarkTicketUsed sets used_at only when the ticket is still unused.
	// Returns ErrAlreadyUsed when another redemption won the race and
	// ErrNotFound when no such ticket exists.
	MarkTicketUsed(ctx context.Context, jti string, at time.Time) error

	// DeleteExpiredTickets is housekeeping.
	DeleteExpiredTickets(ctx context.Context, before time.Time) error
}
