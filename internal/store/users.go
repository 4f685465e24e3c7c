package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/medshelf/medshelf/internal/model"
)

// CreateUser creates a new user with the given initial role.
func CreateUser(ctx context.Context, db *sql.DB, email, passwordHash, role string) (*model.User, error) {
	id := uuid.NewString()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)`,
		id, email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id)
		 SELECT ?, id FROM roles WHERE name = ?`,
		id, role,
	)
	if err != nil {
		return nil, fmt.Errorf("assigning initial role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, or nil if it does not exist.
func GetUser(ctx context.Context, db *sql.DB, id string) (*model.User, error) {
	u := &model.User{}
	err := db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, deleted_at
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email (including soft-deleted for auth checks).
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u := &model.User{}
	err := db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, deleted_at
		 FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// GetUserRoles returns the role-name set for a user. A missing or empty
// identity yields an empty set, never an error about the user itself.
func GetUserRoles(ctx context.Context, db *sql.DB, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT r.name FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = ?
		 ORDER BY r.name`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting user roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// ListRoles returns the role catalog.
func ListRoles(ctx context.Context, db *sql.DB) ([]model.Role, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name FROM roles ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// ListUsersWithRoles returns every active user with their aggregated role set.
func ListUsersWithRoles(ctx context.Context, db *sql.DB) ([]model.UserRoleAssignment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT u.id, u.email, r.name
		 FROM users u
		 LEFT JOIN user_roles ur ON ur.user_id = u.id
		 LEFT JOIN roles r ON r.id = ur.role_id
		 WHERE u.deleted_at IS NULL
		 ORDER BY u.created_at, u.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users with roles: %w", err)
	}
	defer rows.Close()

	var users []model.UserRoleAssignment
	index := map[string]int{}
	for rows.Next() {
		var id, email string
		var role sql.NullString
		if err := rows.Scan(&id, &email, &role); err != nil {
			return nil, fmt.Errorf("scanning user role row: %w", err)
		}

		i, ok := index[id]
		if !ok {
			i = len(users)
			index[id] = i
			users = append(users, model.UserRoleAssignment{UserID: id, Email: email})
		}
		if role.Valid {
			users[i].Roles = append(users[i].Roles, role.String)
		}
	}
	return users, rows.Err()
}

// SetSingleRole atomically replaces a user's entire role set with the single
// given role. The delete and insert run in one transaction so the user is
// never observable with both the old and new role.
func SetSingleRole(ctx context.Context, db *sql.DB, userID, roleName string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("setting role: %w", err)
	}
	defer tx.Rollback()

	var roleID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM roles WHERE name = ?`, roleName,
	).Scan(&roleID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("unknown role %q", roleName)
	}
	if err != nil {
		return fmt.Errorf("resolving role: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("clearing roles: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`,
		userID, roleID,
	); err != nil {
		return fmt.Errorf("assigning role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("setting role: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user and removes their role bindings.
func DeleteUser(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ?`, id,
	); err != nil {
		return fmt.Errorf("clearing roles: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
