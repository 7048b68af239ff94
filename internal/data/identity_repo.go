package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/target/extranet-gate/internal/data/pgxutil"
	domainauth "github.com/target/extranet-gate/internal/domain/auth"
)

var (
	// ErrIdentityNotFound is returned when an identity is not found.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrUsernameExists is returned when creating an identity with a duplicate username.
	ErrUsernameExists = errors.New("username already exists")
)

// IdentityRepo provides database operations for identities and their
// federated provider links.
type IdentityRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewIdentityRepo creates a new IdentityRepo with real time provider.
func NewIdentityRepo(db *sql.DB) *IdentityRepo {
	return &IdentityRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewIdentityRepoWithTimeProvider creates a new IdentityRepo with a custom time provider (useful for tests).
func NewIdentityRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *IdentityRepo {
	return &IdentityRepo{DB: db, timeProvider: tp}
}

// identityRow mirrors the identities table for pgx row collection.
type identityRow struct {
	ID           string       `db:"id"`
	Username     string       `db:"username"`
	DisplayName  string       `db:"display_name"`
	Email        string       `db:"email"`
	Groups       []string     `db:"groups"`
	PasswordHash string       `db:"password_hash"`
	TOTPSecret   []byte       `db:"totp_secret"`
	Disabled     bool         `db:"disabled"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (r identityRow) toDomain() domainauth.Identity {
	return domainauth.Identity{
		ID:           r.ID,
		Username:     r.Username,
		DisplayName:  r.DisplayName,
		Email:        r.Email,
		Groups:       r.Groups,
		PasswordHash: r.PasswordHash,
		TOTPSecret:   r.TOTPSecret,
		Disabled:     r.Disabled,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

const identityColumns = `id, username, display_name, email, "groups", password_hash, totp_secret, disabled, created_at, updated_at`

const (
	identityGetByIDQuery = `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE id = $1`

	identityGetByUsernameQuery = `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE username = $1`

	identityGetByLinkQuery = `
		SELECT i.id, i.username, i.display_name, i.email, i."groups", i.password_hash,
		       i.totp_secret, i.disabled, i.created_at, i.updated_at
		FROM identities i
		JOIN federated_links l ON l.identity_id = i.id
		WHERE l.provider_id = $1 AND l.external_subject = $2`
)

// FindByID retrieves an identity by its internal id. A malformed id is
// reported as not-found rather than surfacing a postgres cast error.
func (r *IdentityRepo) FindByID(ctx context.Context, id string) (domainauth.Identity, error) {
	if uuid.Validate(id) != nil {
		return domainauth.Identity{}, ErrIdentityNotFound
	}
	return r.getByQuery(ctx, identityGetByIDQuery, "failed to get identity by id", id)
}

// FindByUsername retrieves an identity by username.
func (r *IdentityRepo) FindByUsername(ctx context.Context, username string) (domainauth.Identity, error) {
	return r.getByQuery(ctx, identityGetByUsernameQuery, "failed to get identity by username", strings.TrimSpace(username))
}

// Create inserts a new identity.
func (r *IdentityRepo) Create(ctx context.Context, identity domainauth.Identity) (domainauth.Identity, error) {
	username := strings.TrimSpace(identity.Username)
	if username == "" {
		return domainauth.Identity{}, errors.New("username is required")
	}

	now := r.timeProvider.Now().UTC()
	var out identityRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO identities (
				username, display_name, email, "groups", password_hash, totp_secret, disabled, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $8
			) RETURNING `+identityColumns,
			username,
			identity.DisplayName,
			identity.Email,
			groupsOrEmpty(identity.Groups),
			identity.PasswordHash,
			identity.TOTPSecret,
			identity.Disabled,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identityRow])
		return err
	})
	if err != nil {
		return domainauth.Identity{}, r.mapWriteErr(err)
	}
	return out.toDomain(), nil
}

// FindOrCreateByLink resolves the identity behind a (provider, subject)
// pair, provisioning the identity and link when the pair is new.
// Provisioning never adopts an existing row by username: a collision
// with an unrelated account is reported as ErrUsernameExists. A
// concurrent first login for the same pair converges on the winner's
// row.
func (r *IdentityRepo) FindOrCreateByLink(
	ctx context.Context,
	link domainauth.FederatedLink,
	identity domainauth.Identity,
) (domainauth.Identity, error) {
	if link.ProviderID == "" || link.ExternalSubject == "" {
		return domainauth.Identity{}, errors.New("provider id and external subject are required")
	}

	var out identityRow
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, identityGetByLinkQuery, link.ProviderID, link.ExternalSubject)
		if err != nil {
			return err
		}
		found, err := collectOneOrNone(rows)
		if err != nil {
			return err
		}
		if found != nil {
			out = *found
			return nil
		}

		now := r.timeProvider.Now().UTC()
		rows, err = tx.Query(ctx, `
			INSERT INTO identities (
				username, display_name, email, "groups", password_hash, disabled, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, '', FALSE, $5, $5
			)
			RETURNING `+identityColumns,
			strings.TrimSpace(identity.Username),
			identity.DisplayName,
			identity.Email,
			groupsOrEmpty(identity.Groups),
			now,
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identityRow])
		if err != nil {
			return err
		}

		ct, err := tx.Exec(ctx, `
			INSERT INTO federated_links (identity_id, provider_id, external_subject, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (provider_id, external_subject) DO NOTHING`,
			out.ID, link.ProviderID, link.ExternalSubject, now,
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			// A concurrent first login inserted the link; its identity wins.
			rows, err = tx.Query(ctx, identityGetByLinkQuery, link.ProviderID, link.ExternalSubject)
			if err != nil {
				return err
			}
			out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identityRow])
			return err
		}
		return nil
	}})
	if err != nil {
		if errors.Is(r.mapWriteErr(err), ErrUsernameExists) {
			// Either a concurrent first login for the same link committed
			// first, or the username belongs to an unrelated account.
			if existing, lookErr := r.getByQuery(ctx, identityGetByLinkQuery,
				"failed to get identity by link", link.ProviderID, link.ExternalSubject,
			); lookErr == nil {
				return existing, nil
			}
			return domainauth.Identity{}, ErrUsernameExists
		}
		return domainauth.Identity{}, fmt.Errorf("find or create identity by link: %w", err)
	}
	return out.toDomain(), nil
}

// UpdateProfile refreshes the claim-derived fields of an identity.
func (r *IdentityRepo) UpdateProfile(ctx context.Context, identity domainauth.Identity) error {
	if uuid.Validate(identity.ID) != nil {
		return ErrIdentityNotFound
	}

	now := r.timeProvider.Now().UTC()
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE identities
			SET display_name = $2, email = $3, "groups" = $4, updated_at = $5
			WHERE id = $1`,
			identity.ID,
			identity.DisplayName,
			identity.Email,
			groupsOrEmpty(identity.Groups),
			now,
		)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update identity profile: %w", err)
	}
	if affected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// SetPasswordHash stores a new digest for the identity, used on rehash
// after a parameter upgrade.
func (r *IdentityRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	if uuid.Validate(id) != nil {
		return ErrIdentityNotFound
	}

	now := r.timeProvider.Now().UTC()
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`,
			id, hash, now,
		)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set password hash: %w", err)
	}
	if affected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// --- helpers ---

func (r *IdentityRepo) getByQuery(
	ctx context.Context,
	q string,
	errMsg string,
	args ...any,
) (domainauth.Identity, error) {
	var row identityRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[identityRow])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.Identity{}, ErrIdentityNotFound
		}
		return domainauth.Identity{}, fmt.Errorf("%s: %w", errMsg, err)
	}
	return row.toDomain(), nil
}

// collectOneOrNone collects at most one row, returning nil when the
// result set is empty.
func collectOneOrNone(rows pgx.Rows) (*identityRow, error) {
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[identityRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *IdentityRepo) mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrUsernameExists
	}
	return err
}

func groupsOrEmpty(groups []string) []string {
	if groups == nil {
		return []string{}
	}
	return groups
}
