// Package scope resolves which school records an authenticated identity may
// touch. HQ roles are unscoped, an admin sees only their own school and a
// supervisor sees every school on their route.
package scope

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
	schooldomain "github.com/Shihab-md/unis-server-sub000/internal/school/domain"
)

// Resolver answers scoping questions for one identity.
type Resolver interface {
	// SchoolIDs returns the schools the identity may read. The unscoped
	// flag is true for HQ roles, where no filter applies at all.
	SchoolIDs(ctx context.Context, identity authdomain.Identity) (ids []snowflake.ID, unscoped bool, err error)

	// CanAccessSchool reports whether the identity may act on the school.
	CanAccessSchool(ctx context.Context, identity authdomain.Identity, schoolID snowflake.ID) (bool, error)
}

type ResolverParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type resolver struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewResolver(p ResolverParam) Resolver {
	return &resolver{
		db:  p.DB,
		log: p.Log.Named("scope.resolver"),
	}
}

func (r *resolver) SchoolIDs(ctx context.Context, identity authdomain.Identity) ([]snowflake.ID, bool, error) {
	if identity.Role.IsHQ() {
		return nil, true, nil
	}

	switch identity.Role {
	case authdomain.RoleAdmin:
		if identity.SchoolID == nil {
			return nil, false, nil
		}
		return []snowflake.ID{*identity.SchoolID}, false, nil

	case authdomain.RoleSupervisor:
		if identity.SupervisorID == nil {
			return nil, false, nil
		}
		var ids []snowflake.ID
		err := r.db.WithContext(ctx).
			Model(&schooldomain.School{}).
			Where("supervisor_id = ?", *identity.SupervisorID).
			Pluck("id", &ids).Error
		if err != nil {
			return nil, false, err
		}
		return ids, false, nil
	}

	// Unknown roles see nothing.
	return nil, false, nil
}

func (r *resolver) CanAccessSchool(ctx context.Context, identity authdomain.Identity, schoolID snowflake.ID) (bool, error) {
	ids, unscoped, err := r.SchoolIDs(ctx, identity)
	if err != nil {
		return false, err
	}
	if unscoped {
		return true, nil
	}
	for _, id := range ids {
		if id == schoolID {
			return true, nil
		}
	}
	return false, nil
}
