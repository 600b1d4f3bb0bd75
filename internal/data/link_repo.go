package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ubc/wiki-cwl-link/internal/data/pgxutil"
	"github.com/ubc/wiki-cwl-link/internal/domain/identity"
	apperrors "github.com/ubc/wiki-cwl-link/internal/errors"
	"github.com/ubc/wiki-cwl-link/internal/ports"
)

// LinkRepo implements the LinkRepository port on PostgreSQL.
//
// The user_cwl_links table carries unique constraints on both local_user_id
// and external_login_name; those constraints are the final tie-breaker for
// the allocator's non-atomic existence pre-check. Unique violations come
// back as Conflict errors for the caller to retry.
type LinkRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewLinkRepo creates a new LinkRepo with the given database connection.
func NewLinkRepo(db *sql.DB) *LinkRepo {
	return &LinkRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// historical_affiliations arrived in a later migration; COALESCE keeps reads
// working during the migration window by degrading the column to "".
const linkColumns = `local_user_id, external_login_name, person_id, current_affiliations,
	COALESCE(historical_affiliations, '') AS historical_affiliations, display_name, created_at, updated_at`

// GetByExternalLogin returns the link for a CWL login name joined with the
// host account's username.
func (r *LinkRepo) GetByExternalLogin(ctx context.Context, loginName string) (*identity.LinkedAccount, error) {
	if strings.TrimSpace(loginName) == "" {
		return nil, errors.New("login name is required")
	}
	var out identity.LinkedAccount
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT l.local_user_id, l.external_login_name, l.person_id, l.current_affiliations,
			       COALESCE(l.historical_affiliations, '') AS historical_affiliations,
			       l.display_name, l.created_at, l.updated_at, u.user_name
			FROM user_cwl_links l
			JOIN wiki_user u ON u.user_id = l.local_user_id
			WHERE l.external_login_name = $1
		`, loginName)
		return row.Scan(
			&out.Link.LocalUserID, &out.Link.ExternalLoginName, &out.Link.PersonID,
			&out.Link.CurrentAffiliations, &out.Link.HistoricalAffiliations,
			&out.Link.DisplayName, &out.Link.CreatedAt, &out.Link.UpdatedAt,
			&out.LocalUsername,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrLinkNotFound
		}
		return nil, fmt.Errorf("get link by external login: %w", err)
	}
	return &out, nil
}

// GetByLocalUser returns the link row for a local account.
func (r *LinkRepo) GetByLocalUser(ctx context.Context, localUserID int64) (*identity.LinkRecord, error) {
	if localUserID <= 0 {
		return nil, errors.New("local user id is required")
	}
	var out identity.LinkRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(
			ctx,
			`SELECT `+linkColumns+` FROM user_cwl_links WHERE local_user_id = $1`,
			localUserID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[identity.LinkRecord])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrLinkNotFound
		}
		return nil, fmt.Errorf("get link by local user: %w", err)
	}
	return &out, nil
}

// Create inserts a new link row. The current and historical affiliation
// columns start out identical; serialization to the space-delimited stored
// form happens here and nowhere upstream.
func (r *LinkRepo) Create(ctx context.Context, req identity.CreateLinkRequest) (*identity.LinkRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	serialized := req.Affiliations.Serialize()
	now := r.timeProvider.Now().UTC()

	var out identity.LinkRecord
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO user_cwl_links
				(local_user_id, external_login_name, person_id, current_affiliations,
				 historical_affiliations, display_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4, $5, $6, $6)
			RETURNING `+linkColumns+`
		`, req.LocalUserID, req.ExternalLoginName, req.PersonID, serialized, req.DisplayName, now)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[identity.LinkRecord])
		return e
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Update rewrites the reconciled fields in place. All four fields are
// written in one statement so a partial link row can never be observed.
func (r *LinkRepo) Update(ctx context.Context, localUserID int64, req identity.UpdateLinkRequest) (*identity.LinkRecord, error) {
	if localUserID <= 0 {
		return nil, errors.New("local user id is required")
	}
	var out identity.LinkRecord
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE user_cwl_links
			SET person_id = $2, current_affiliations = $3, historical_affiliations = $4,
			    display_name = $5, updated_at = $6
			WHERE local_user_id = $1
			RETURNING `+linkColumns+`
		`, localUserID, req.PersonID, req.CurrentAffiliations.Serialize(),
			req.HistoricalAffiliations.Serialize(), req.DisplayName, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[identity.LinkRecord])
		return e
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrLinkNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

var _ ports.LinkRepository = (*LinkRepo)(nil)
