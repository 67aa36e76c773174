// ABOUTME: Token blacklist for revoked session tokens.
// ABOUTME: Blacklisting an already blacklisted token succeeds.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// BlacklistToken records token as revoked.
func (e *Engine) BlacklistToken(ctx context.Context, q Execer, token string) error {
	if strings.TrimSpace(token) == "" {
		return &InvalidValueError{Field: "token", Reason: "required"}
	}

	d := e.dialect
	query := fmt.Sprintf(`INSERT INTO %s (token, blacklisted_at) VALUES (%s, %s)`,
		d.Table(tableTokenBlacklist), d.Placeholder(1), d.Placeholder(2))
	_, err := q.ExecContext(ctx, query, token, d.TimeValue(time.Now()))
	if err == nil {
		return nil
	}
	if e.dialect.classify(err) == classUnique {
		return nil
	}
	return fmt.Errorf("blacklist token: %w", e.fail(err, tableTokenBlacklist, query, []any{"<redacted>"}))
}

// IsTokenBlacklisted reports whether token has been revoked.
func (e *Engine) IsTokenBlacklisted(ctx context.Context, q Execer, token string) (bool, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE token = %s`,
		e.dialect.Table(tableTokenBlacklist), e.dialect.Placeholder(1))

	var n int
	if err := q.QueryRowContext(ctx, query, token).Scan(&n); err != nil {
		return false, e.fail(err, tableTokenBlacklist, query, []any{"<redacted>"})
	}
	return n > 0, nil
}
