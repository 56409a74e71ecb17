package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shop-account/internal/data/entity"
	"shop-account/pkg/apperr"
	"shop-account/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*entity.User, error)
	FindByEmailAndDigest(ctx context.Context, email, digest string) (*entity.User, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.User, error)
	CountAll(ctx context.Context) (int64, error)
	UpdatePasswordDigest(ctx context.Context, id uuid.UUID, digest string) (int64, error)
	UpdatePasswordDigestByEmail(ctx context.Context, email, digest string) (int64, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewUserRepository(db database.PgxIface, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

const userColumns = `id, username, email, password_digest, full_name, phone, role,
	       is_active, created_at, updated_at`

// Create inserts a new user record into the database. A unique-constraint
// violation is reported as DuplicateIdentity even when the caller's
// pre-check passed, covering the race between check and insert.
func (ur *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, username, email, password_digest, full_name, phone,
		                  role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := ur.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordDigest,
		user.FullName,
		user.Phone,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if dup := duplicateIdentity(err); dup != nil {
			return dup
		}
		ur.log.Error("Failed to create user",
			zap.Error(err),
			zap.String("email", user.Email),
			zap.String("username", user.Username),
		)
		return fmt.Errorf("create user %s: %w", user.Email, err)
	}

	return nil
}

func (ur *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := ur.scanOne(ur.db.QueryRow(ctx, query, id))
	if err != nil {
		ur.log.Error("Failed to find user by ID",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return nil, fmt.Errorf("find user by ID %s: %w", id.String(), err)
	}

	return user, nil
}

func (ur *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := ur.scanOne(ur.db.QueryRow(ctx, query, email))
	if err != nil {
		ur.log.Error("Failed to find user by email",
			zap.Error(err),
			zap.String("email", email),
		)
		return nil, fmt.Errorf("find user by email %s: %w", email, err)
	}

	return user, nil
}

// FindByEmailOrUsername is the single existence query used to pre-check
// registration: it matches either identity field.
func (ur *userRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR username = $2 LIMIT 1`

	user, err := ur.scanOne(ur.db.QueryRow(ctx, query, email, username))
	if err != nil {
		ur.log.Error("Failed to find user by email or username",
			zap.Error(err),
			zap.String("email", email),
			zap.String("username", username),
		)
		return nil, fmt.Errorf("find user by email or username: %w", err)
	}

	return user, nil
}

// FindByEmailAndDigest matches email and password digest in one lookup, so
// login cannot distinguish wrong email from wrong password by timing.
func (ur *userRepository) FindByEmailAndDigest(ctx context.Context, email, digest string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND password_digest = $2`

	user, err := ur.scanOne(ur.db.QueryRow(ctx, query, email, digest))
	if err != nil {
		ur.log.Error("Failed to find user by credentials",
			zap.Error(err),
			zap.String("email", email),
		)
		return nil, fmt.Errorf("find user by credentials: %w", err)
	}

	return user, nil
}

// FindAll retrieves paginated list of users
func (ur *userRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := ur.db.Query(ctx, query, limit, offset)
	if err != nil {
		ur.log.Error("Failed to get all users",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find all users limit %d offset %d: %w", limit, offset, err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var user entity.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordDigest,
			&user.FullName,
			&user.Phone,
			&user.Role,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			ur.log.Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		ur.log.Error("Rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("iterate users rows: %w", err)
	}

	return users, nil
}

func (ur *userRepository) CountAll(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM users`

	var count int64
	err := ur.db.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		ur.log.Error("Database error counting users", zap.Error(err))
		return 0, fmt.Errorf("count all users: %w", err)
	}

	return count, nil
}

// UpdatePasswordDigest replaces the stored digest and returns the number
// of rows touched; zero means the account vanished between steps.
func (ur *userRepository) UpdatePasswordDigest(ctx context.Context, id uuid.UUID, digest string) (int64, error) {
	query := `UPDATE users SET password_digest = $2, updated_at = NOW() WHERE id = $1`

	result, err := ur.db.Exec(ctx, query, id, digest)
	if err != nil {
		ur.log.Error("Failed to update password digest",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return 0, fmt.Errorf("update password digest for %s: %w", id.String(), err)
	}

	return result.RowsAffected(), nil
}

func (ur *userRepository) UpdatePasswordDigestByEmail(ctx context.Context, email, digest string) (int64, error) {
	query := `UPDATE users SET password_digest = $2, updated_at = NOW() WHERE email = $1`

	result, err := ur.db.Exec(ctx, query, email, digest)
	if err != nil {
		ur.log.Error("Failed to update password digest",
			zap.Error(err),
			zap.String("email", email),
		)
		return 0, fmt.Errorf("update password digest for %s: %w", email, err)
	}

	return result.RowsAffected(), nil
}

// Deactivate disables the account. Accounts are never physically deleted.
func (ur *userRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET is_active = false, updated_at = NOW() WHERE id = $1`

	result, err := ur.db.Exec(ctx, query, id)
	if err != nil {
		ur.log.Error("Failed to deactivate user",
			zap.Error(err),
			zap.String("id", id.String()),
		)
		return fmt.Errorf("deactivate user %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id.String(), apperr.ErrNotFound)
	}

	ur.log.Info("User deactivated", zap.String("id", id.String()))
	return nil
}

func (ur *userRepository) scanOne(row pgx.Row) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordDigest,
		&user.FullName,
		&user.Phone,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// duplicateIdentity maps a Postgres unique violation to the structured
// DuplicateIdentity error, keyed off the violated constraint.
func duplicateIdentity(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}

	if strings.Contains(pgErr.ConstraintName, "email") {
		return apperr.DuplicateIdentity(apperr.FieldEmail)
	}
	return apperr.DuplicateIdentity(apperr.FieldUsername)
}
