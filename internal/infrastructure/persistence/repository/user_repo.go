package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	"github.com/lahah11/finale-anesp-sub000/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository. User administration is
// external; this repository only reads.
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `
		SELECT id, institution_id, role_code, full_name, email, created_at
		FROM users
		WHERE id = ?
	`

	var u entity.User
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.InstitutionID, &u.RoleCode, &u.FullName, &u.Email, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// FindByInstitutionRole retrieves users holding the role within the
// institution. Ascending id keeps the first match deterministic.
func (r *UserRepository) FindByInstitutionRole(ctx context.Context, institutionID int64, roleCode string) ([]*entity.User, error) {
	query := `
		SELECT id, institution_id, role_code, full_name, email, created_at
		FROM users
		WHERE institution_id = ? AND role_code = ?
		ORDER BY id
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, institutionID, roleCode)
	if err != nil {
		r.logger.Error("Failed to find users by role",
			zap.Int64("institution_id", institutionID),
			zap.String("role_code", roleCode),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var u entity.User
		if err := rows.Scan(&u.ID, &u.InstitutionID, &u.RoleCode, &u.FullName, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
