package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hexlet/typoreporter/internal/db"
)

const accountColumns = `id, username, email, password_hash, first_name, last_name, created_at, updated_at`

// Unique constraints declared in db/migrations.
const (
	usernameConstraint = "accounts_username_key"
	emailConstraint    = "accounts_email_key"
)

// PostgresStore is the Store backed by the accounts and workspace tables.
type PostgresStore struct {
	conn db.DBTX
}

// NewPostgresStore wraps a pool or transaction.
func NewPostgresStore(conn db.DBTX) *PostgresStore {
	return &PostgresStore{conn: conn}
}

type accountRow struct {
	ID           pgtype.UUID
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

func scanAccount(row pgx.Row) (Account, error) {
	var r accountRow
	err := row.Scan(&r.ID, &r.Username, &r.Email, &r.PasswordHash, &r.FirstName, &r.LastName, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return toAccount(r), nil
}

func toAccount(r accountRow) Account {
	return Account{
		ID:           db.UUIDToString(r.ID),
		Username:     strings.TrimSpace(r.Username),
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		CreatedAt:    db.TimeFromPg(r.CreatedAt),
		UpdatedAt:    db.TimeFromPg(r.UpdatedAt),
	}
}

func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (Account, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`,
		username)
	return scanAccount(row)
}

func (s *PostgresStore) GetByIdentity(ctx context.Context, identity string) (Account, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE username = $1 OR email = lower($1)
		 ORDER BY username = $1 DESC
		 LIMIT 1`,
		identity)
	return scanAccount(row)
}

func (s *PostgresStore) FindConflict(ctx context.Context, username, email, excludeID string) (string, error) {
	exclude := pgtype.UUID{}
	if strings.TrimSpace(excludeID) != "" {
		var err error
		if exclude, err = db.ParseUUID(excludeID); err != nil {
			return "", err
		}
	}
	rows, err := s.conn.Query(ctx,
		`SELECT username, email FROM accounts
		 WHERE (username = $1 OR email = $2)
		   AND ($3::uuid IS NULL OR id <> $3::uuid)`,
		username, email, exclude)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	field := ""
	for rows.Next() {
		var takenUsername, takenEmail string
		if err := rows.Scan(&takenUsername, &takenEmail); err != nil {
			return "", err
		}
		if takenUsername == username {
			field = "username"
			break
		}
		if takenEmail == email {
			field = "email"
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return field, nil
}

func (s *PostgresStore) Create(ctx context.Context, params CreateParams) (Account, error) {
	row := s.conn.QueryRow(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, first_name, last_name)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+accountColumns,
		pgtype.UUID{Bytes: uuid.New(), Valid: true},
		params.Username, params.Email, params.PasswordHash, params.FirstName, params.LastName)
	account, err := scanAccount(row)
	if err != nil {
		return Account{}, mapWriteError(err)
	}
	return account, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, params ProfileParams) (Account, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Account{}, err
	}
	row := s.conn.QueryRow(ctx,
		`UPDATE accounts
		 SET username = $2, email = $3, first_name = $4, last_name = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+accountColumns,
		pgID, params.Username, params.Email, params.FirstName, params.LastName)
	account, err := scanAccount(row)
	if err != nil {
		return Account{}, mapWriteError(err)
	}
	return account, nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id, passwordHash string) (Account, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Account{}, err
	}
	row := s.conn.QueryRow(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+accountColumns,
		pgID, passwordHash)
	return scanAccount(row)
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) ListWorkspaceRoles(ctx context.Context, username string) ([]WorkspaceRoleInfo, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT w.id, w.name, w.description, r.role
		 FROM workspace_roles r
		 JOIN workspaces w ON w.id = r.workspace_id
		 JOIN accounts a ON a.id = r.account_id
		 WHERE a.username = $1
		 ORDER BY w.name`,
		username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]WorkspaceRoleInfo, 0)
	for rows.Next() {
		var (
			id   pgtype.UUID
			item WorkspaceRoleInfo
		)
		if err := rows.Scan(&id, &item.WorkspaceName, &item.Description, &item.Role); err != nil {
			return nil, err
		}
		item.WorkspaceID = db.UUIDToString(id)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func mapWriteError(err error) error {
	if !db.IsUniqueViolation(err) {
		return err
	}
	switch db.ConstraintName(err) {
	case usernameConstraint:
		return &ConflictError{Field: "username"}
	case emailConstraint:
		return &ConflictError{Field: "email"}
	default:
		return fmt.Errorf("unique violation: %w", err)
	}
}
