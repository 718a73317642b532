package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PGStaffStore stores staff sessions in Postgres so they survive both
// gateway restarts and browser restarts.
type PGStaffStore struct {
	db *sql.DB
}

func NewPGStaffStore(db *sql.DB) *PGStaffStore {
	return &PGStaffStore{db: db}
}

func (s *PGStaffStore) Save(ctx context.Context, id string, t Tokens, identity StaffIdentity) error {
	if !t.Valid() {
		return errPartialTokens
	}
	blob, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	// Single statement: tokens and identity land together or not at all.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO staff_sessions (id, access_token, refresh_token, identity, refresh_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			identity = EXCLUDED.identity,
			refresh_expires_at = EXCLUDED.refresh_expires_at,
			updated_at = now()`,
		id, t.Access, t.Refresh, blob, tokenExpiry(t.Refresh))
	if err != nil {
		return fmt.Errorf("save staff session: %w", err)
	}
	return nil
}

func (s *PGStaffStore) Load(ctx context.Context, id string) (*StaffSession, error) {
	var (
		sess StaffSession
		blob []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, identity, created_at, updated_at
		FROM staff_sessions WHERE id = $1`, id).
		Scan(&sess.Tokens.Access, &sess.Tokens.Refresh, &blob, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load staff session: %w", err)
	}

	// A half-written or undecodable session is worse than none: clear it so
	// no stale token remains retrievable, then report absence.
	if !sess.Tokens.Valid() || json.Unmarshal(blob, &sess.Identity) != nil {
		if err := s.Clear(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}

	sess.ID = id
	return &sess, nil
}

func (s *PGStaffStore) UpdateAccessToken(ctx context.Context, id, access string) error {
	if access == "" {
		return errPartialTokens
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE staff_sessions SET access_token = $2, updated_at = now() WHERE id = $1`,
		id, access)
	if err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoSession
	}
	return nil
}

func (s *PGStaffStore) Clear(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM staff_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("clear staff session: %w", err)
	}
	return nil
}

// PurgeExpired removes sessions whose refresh token is past its expiry.
// Such sessions can never be refreshed again; keeping them only delays the
// inevitable "unauthenticated" outcome until the next upstream 401.
func (s *PGStaffStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM staff_sessions WHERE refresh_expires_at IS NOT NULL AND refresh_expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("purge staff sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// tokenExpiry extracts the exp claim from a backend JWT without verifying
// the signature (the backend owns the signing key; the value is only used
// for housekeeping, never for authorization). Returns nil when the token is
// not a parseable JWT or carries no expiry.
func tokenExpiry(raw string) *time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	t := claims.ExpiresAt.Time
	return &t
}
