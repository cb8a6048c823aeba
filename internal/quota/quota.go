// Package quota enforces the per-user monthly analysis limit. Limits resolve
// through a three-level override hierarchy (user > team > global) with a
// built-in default, so a limit is always resolvable; usage is reserved before
// the expensive model calls are made.
package quota

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultMonthlyLimit applies when no override row exists at any scope.
const DefaultMonthlyLimit = 20

type Decision struct {
	Allowed bool
	Used    int
	Limit   int
}

type Resolver struct {
	db           *sql.DB
	defaultLimit int
}

func New(db *sql.DB, defaultLimit int) *Resolver {
	if defaultLimit <= 0 {
		defaultLimit = DefaultMonthlyLimit
	}
	return &Resolver{db: db, defaultLimit: defaultLimit}
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Check resolves the effective limit and current usage for this month. Any
// lookup error propagates so the caller denies the run; the quota gate fails
// closed, never open.
func (r *Resolver) Check(ctx context.Context, userID, teamID string) (Decision, error) {
	limit, err := r.resolveLimit(ctx, userID, teamID)
	if err != nil {
		return Decision{}, err
	}

	var used int
	err = r.db.QueryRowContext(ctx, `
		SELECT analyses_used FROM quota_usage WHERE user_id = ? AND month = ?
	`, userID, monthKey(time.Now())).Scan(&used)
	if err != nil && err != sql.ErrNoRows {
		return Decision{}, fmt.Errorf("quota usage lookup: %w", err)
	}

	return Decision{Allowed: used < limit, Used: used, Limit: limit}, nil
}

// Reserve increments this month's counter if and only if it is still under
// the effective limit, in a single statement so concurrent requests cannot
// race past the ceiling. Returns false when the ceiling blocked it.
func (r *Resolver) Reserve(ctx context.Context, userID, teamID string) (bool, error) {
	limit, err := r.resolveLimit(ctx, userID, teamID)
	if err != nil {
		return false, err
	}
	if limit <= 0 {
		return false, nil
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO quota_usage (user_id, month, analyses_used) VALUES (?, ?, 1)
		ON CONFLICT(user_id, month) DO UPDATE SET analyses_used = analyses_used + 1
		WHERE analyses_used < ?
	`, userID, monthKey(time.Now()), limit)
	if err != nil {
		return false, fmt.Errorf("reserve quota: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve quota: %w", err)
	}
	return n > 0, nil
}

// Release undoes one reservation, used when the run fails before any model
// call was made.
func (r *Resolver) Release(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE quota_usage SET analyses_used = analyses_used - 1
		WHERE user_id = ? AND month = ? AND analyses_used > 0
	`, userID, monthKey(time.Now()))
	if err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// resolveLimit probes user, team, then global overrides; first match wins.
func (r *Resolver) resolveLimit(ctx context.Context, userID, teamID string) (int, error) {
	probes := []struct {
		scope string
		id    string
	}{
		{"user", userID},
		{"team", teamID},
		{"global", ""},
	}

	for _, p := range probes {
		if p.scope == "team" && p.id == "" {
			continue
		}
		var limit int
		err := r.db.QueryRowContext(ctx, `
			SELECT monthly_limit FROM quota_limits WHERE scope = ? AND scope_id = ?
		`, p.scope, p.id).Scan(&limit)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("quota limit lookup (%s): %w", p.scope, err)
		}
		return limit, nil
	}
	return r.defaultLimit, nil
}

// SetLimit upserts an override row. Used by the importer and tests.
func (r *Resolver) SetLimit(ctx context.Context, scope, scopeID string, limit int) error {
	switch scope {
	case "user", "team", "global":
	default:
		return fmt.Errorf("unknown quota scope %q", scope)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quota_limits (scope, scope_id, monthly_limit) VALUES (?, ?, ?)
		ON CONFLICT(scope, scope_id) DO UPDATE SET monthly_limit = excluded.monthly_limit
	`, scope, scopeID, limit)
	if err != nil {
		return fmt.Errorf("set quota limit: %w", err)
	}
	return nil
}
