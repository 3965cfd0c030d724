package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const userColumns = `id, email, name, password_hash, role, phone, address, city, district, ward,
	postal_code, is_active, created_at, updated_at, version`

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.Phone,
		&user.Address,
		&user.City,
		&user.District,
		&user.Ward,
		&user.PostalCode,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	return user, err
}

func CreateUser(ctx context.Context, db *sql.DB, email, name, passwordHash string, role models.Role) (*models.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash, role, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query, strings.ToLower(email), name, passwordHash, role))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db DBTX, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

// ListUsers pages through every user, newest first.
func ListUsers(ctx context.Context, db DBTX, page, pageSize int) (*OffsetPage, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(users, total, page, pageSize), nil
}

func UpdateUserProfile(ctx context.Context, db DBTX, id int64, p models.Profile) (*models.User, error) {
	query := `
		UPDATE users
		SET name = $1, phone = $2, address = $3, city = $4, district = $5, ward = $6,
		    postal_code = $7, updated_at = NOW(), version = version + 1
		WHERE id = $8
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query,
		p.Name, p.Phone, p.Address, p.City, p.District, p.Ward, p.PostalCode, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user profile: %w", err)
	}

	return user, nil
}

func UpdatePasswordHash(ctx context.Context, db DBTX, id int64, hash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW(), version = version + 1 WHERE id = $2`,
		hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}

// ToggleUserActive flips is_active for a customer account. Admin accounts are
// never changed.
func ToggleUserActive(ctx context.Context, db DBTX, id int64) (*models.User, error) {
	user, err := GetUser(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return nil, database.ErrAdminImmutable
	}

	query := `
		UPDATE users
		SET is_active = NOT is_active, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND role <> $2
		RETURNING ` + userColumns

	user, err = scanUser(db.QueryRowContext(ctx, query, id, models.RoleAdmin))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("toggle user active: %w", err)
	}

	return user, nil
}
