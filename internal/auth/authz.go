package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/wolfeidau/casework/internal/models"
)

// Permission represents an authorized action
type Permission string

const (
	PermReportsGenerate     Permission = "reports:generate"
	PermReportsArchive      Permission = "reports:archive"
	PermArchiveRead         Permission = "archive:read"
	PermCatalogRead         Permission = "catalog:read"
	PermCatalogManage       Permission = "catalog:manage"
	PermUsersCreate         Permission = "users:create"
	PermOrganizationsCreate Permission = "organizations:create"
	PermParticipantsRead    Permission = "participants:read"
	PermParticipantsWrite   Permission = "participants:write"
	PermRecapsWrite         Permission = "recaps:write"
	PermRecapTypesManage    Permission = "recap-types:manage"
	PermSubscriptionsManage Permission = "subscriptions:manage"
)

// RolePermissions maps roles to allowed permissions
var RolePermissions = map[string][]Permission{
	models.RoleDeveloper: {
		PermReportsGenerate,
		PermReportsArchive,
		PermArchiveRead,
		PermCatalogRead,
		PermCatalogManage,
		PermUsersCreate,
		PermOrganizationsCreate,
		PermParticipantsRead,
		PermParticipantsWrite,
		PermRecapsWrite,
		PermRecapTypesManage,
		PermSubscriptionsManage,
	},
	models.RoleAdmin: {
		PermReportsGenerate,
		PermReportsArchive,
		PermArchiveRead,
		PermCatalogRead,
		PermCatalogManage,
		PermUsersCreate,
		PermParticipantsRead,
		PermParticipantsWrite,
		PermRecapsWrite,
		PermRecapTypesManage,
	},
	models.RoleStaff: {
		PermReportsGenerate,
		PermArchiveRead,
		PermCatalogRead,
		PermParticipantsRead,
		PermParticipantsWrite,
		PermRecapsWrite,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role string, perm Permission) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	return slices.Contains(perms, perm)
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// RequirePermission checks authorization and returns an error if not authorized
func RequirePermission(ctx context.Context, perm Permission) error {
	principal := PrincipalFromContext(ctx)
	if principal == nil {
		return ErrUnauthenticated
	}

	if !HasPermission(principal.Role, perm) {
		return fmt.Errorf("%w: %s requires %s", ErrForbidden, principal.Role, perm)
	}
	return nil
}
