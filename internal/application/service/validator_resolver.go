package service

import (
	"context"
	"fmt"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
)

// ValidatorResolver finds the user authorized to act on the stage about to
// begin, by institution-scoped role code. When several users share the role
// the first match by ascending id wins; ties are not load-balanced.
type ValidatorResolver struct {
	users  port.UserRepository
	logger Logger
}

// NewValidatorResolver creates a new validator resolver
func NewValidatorResolver(users port.UserRepository, logger Logger) *ValidatorResolver {
	return &ValidatorResolver{
		users:  users,
		logger: logger,
	}
}

// ResolveNext returns the responsible user, or (nil, nil) when nobody within
// the institution holds the role. Absence is not an error: it degrades to
// "no notification sent".
func (r *ValidatorResolver) ResolveNext(ctx context.Context, institutionID int64, roleCode string) (*entity.User, error) {
	candidates, err := r.users.FindByInstitutionRole(ctx, institutionID, roleCode)
	if err != nil {
		return nil, fmt.Errorf("find users with role %s: %w", roleCode, err)
	}

	if len(candidates) == 0 {
		r.logger.Warn("No user holds role in institution",
			"institution_id", institutionID,
			"role_code", roleCode)
		return nil, nil
	}

	return candidates[0], nil
}
