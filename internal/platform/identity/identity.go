// Package identity provides local implementations of the permission port.
// Group membership and roles are owned by the household identity service;
// the adapters here cover single-node deployments where that service is not
// split out.
package identity

import (
	"context"
	"sync"

	"github.com/choreboard/choreboard/internal/config"
	"github.com/choreboard/choreboard/internal/domain"
	"github.com/choreboard/choreboard/internal/service"
)

// NewFromConfig builds the permission service selected by the configuration.
// Roles mode returns a RoleService seeded from the configured role table;
// open mode returns an OpenService.
func NewFromConfig(cfg config.PermissionsConfig) service.PermissionService {
	if cfg.Mode == "roles" {
		roleService := NewRoleService()
		for groupID, members := range cfg.Roles {
			for userID, role := range members {
				roleService.SetRole(userID, groupID, role)
			}
		}
		return roleService
	}
	return NewOpenService()
}

// Role names recognized by the role table.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// roleCapabilities maps each role to the capabilities it grants.
var roleCapabilities = map[string][]domain.Capability{
	RoleAdmin: {
		domain.CapCreateTasks,
		domain.CapAssignTasks,
		domain.CapDeleteTasks,
		domain.CapManageGroup,
	},
	RoleMember: {
		domain.CapCreateTasks,
		domain.CapAssignTasks,
	},
	RoleViewer: {},
}

// RoleHasCapability reports whether the role grants the capability.
func RoleHasCapability(role string, capability domain.Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// RoleService is a mutex-guarded in-memory permission service keyed by
// group membership with per-group roles.
type RoleService struct {
	mu sync.RWMutex
	// roles maps groupID -> userID -> role.
	roles map[string]map[string]string
}

// Ensure RoleService implements the service port.
var _ service.PermissionService = (*RoleService)(nil)

// NewRoleService creates an empty RoleService.
func NewRoleService() *RoleService {
	return &RoleService{roles: make(map[string]map[string]string)}
}

// SetRole records the user's role in the group, adding the membership if it
// does not exist yet.
func (s *RoleService) SetRole(userID, groupID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.roles[groupID]
	if !ok {
		group = make(map[string]string)
		s.roles[groupID] = group
	}
	group[userID] = role
}

// RemoveMember drops the user from the group.
func (s *RoleService) RemoveMember(userID, groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if group, ok := s.roles[groupID]; ok {
		delete(group, userID)
	}
}

// CanPerform implements service.PermissionService.CanPerform.
func (s *RoleService) CanPerform(_ context.Context, actorID, groupID string, capability domain.Capability) bool {
	s.mu.RLock()
	role, ok := s.roles[groupID][actorID]
	s.mu.RUnlock()

	if !ok {
		return false
	}
	return RoleHasCapability(role, capability)
}

// IsMember implements service.PermissionService.IsMember.
func (s *RoleService) IsMember(_ context.Context, userID, groupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.roles[groupID][userID]
	return ok
}

// OpenService treats every authenticated user as a group member holding the
// member role. It is the default for deployments without a configured
// identity backend; authentication still happens at the gateway and API.
type OpenService struct{}

// Ensure OpenService implements the service port.
var _ service.PermissionService = OpenService{}

// NewOpenService creates an OpenService.
func NewOpenService() OpenService {
	return OpenService{}
}

// CanPerform implements service.PermissionService.CanPerform.
func (OpenService) CanPerform(_ context.Context, _, _ string, capability domain.Capability) bool {
	return RoleHasCapability(RoleMember, capability)
}

// IsMember implements service.PermissionService.IsMember.
func (OpenService) IsMember(context.Context, string, string) bool {
	return true
}
