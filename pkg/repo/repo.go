package repo

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type Queryer interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

// Join concatenates non-empty SQL fragments with single spaces.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// JoinWhere renders a WHERE clause from AND-ed conditions, or "" when there are none.
func JoinWhere(conditions ...string) string {
	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}

// ExpandNamed binds :name parameters from params, expands slice values used in
// IN (...) lists and rebinds placeholders for the driver behind q.
// Slice parameters must not be empty.
func ExpandNamed(q Queryer, query string, params map[string]any) (string, []any, error) {
	bound, args, err := sqlx.Named(query, params)
	if err != nil {
		return "", nil, errors.Wrap(err, "bind named parameters")
	}
	expanded, args, err := sqlx.In(bound, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "expand list parameters")
	}
	return q.Rebind(expanded), args, nil
}

// Partition splits items into consecutive chunks of at most size elements.
func Partition[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	return slices.Collect(slices.Chunk(items, size))
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SubstituteIdentifiers replaces ${name} placeholders in template with quoted SQL identifiers.
// Values must be plain lower-case identifiers; anything else is rejected.
func SubstituteIdentifiers(template string, identifiers map[string]string) (string, error) {
	pairs := make([]string, 0, len(identifiers)*2)
	for name, ident := range identifiers {
		if !identifierPattern.MatchString(ident) {
			return "", fmt.Errorf("repo: invalid identifier %q for ${%s}", ident, name)
		}
		pairs = append(pairs, "${"+name+"}", pgx.Identifier{ident}.Sanitize())
	}
	out := strings.NewReplacer(pairs...).Replace(template)
	if i := strings.Index(out, "${"); i >= 0 {
		return "", fmt.Errorf("repo: unresolved placeholder in %q", out[i:])
	}
	return out, nil
}
