package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ubc/wiki-cwl-link/internal/data/pgxutil"
	"github.com/ubc/wiki-cwl-link/internal/ports"
)

// WikiUserRepo answers username-existence probes against the host wiki's
// user table. It is read-only; account rows are created and owned by the
// host application.
type WikiUserRepo struct {
	DB *sql.DB
}

// NewWikiUserRepo creates a new WikiUserRepo with the given database connection.
func NewWikiUserRepo(db *sql.DB) *WikiUserRepo {
	return &WikiUserRepo{DB: db}
}

// Exists reports whether a local account with the given username exists.
func (r *WikiUserRepo) Exists(ctx context.Context, username string) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, errors.New("username is required")
	}
	var exists bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM wiki_user WHERE user_name = $1)`, username)
		return row.Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("probe username: %w", err)
	}
	return exists, nil
}

var _ ports.UserDirectory = (*WikiUserRepo)(nil)
