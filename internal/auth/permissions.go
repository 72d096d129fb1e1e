package auth

import (
	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
)

// Permissions answers role-based questions about guild members.
type Permissions struct {
	roles        config.RolesConfig
	supportRoles []string
}

// NewPermissions builds a checker from the configured role ids.
func NewPermissions(roles config.RolesConfig, supportRoles []string) *Permissions {
	return &Permissions{roles: roles, supportRoles: supportRoles}
}

// IsStaff is true for staff, moderators, admins and administrators.
func (p *Permissions) IsStaff(m *domain.Member) bool {
	if m == nil {
		return false
	}
	return m.Administrator ||
		m.HasRole(p.roles.Staff) ||
		m.HasRole(p.roles.Moderator) ||
		m.HasRole(p.roles.Admin)
}

// IsModerator is true for moderators, admins and administrators.
func (p *Permissions) IsModerator(m *domain.Member) bool {
	if m == nil {
		return false
	}
	return m.Administrator || m.HasRole(p.roles.Moderator) || m.HasRole(p.roles.Admin)
}

// CanModerate gates sanctions and purges.
func (p *Permissions) CanModerate(m *domain.Member) bool {
	return p.IsModerator(m)
}

// CanManageSuggestions gates suggestion review.
func (p *Permissions) CanManageSuggestions(m *domain.Member) bool {
	return p.IsStaff(m)
}

// CanManageTickets gates claiming, closing and membership of any ticket.
func (p *Permissions) CanManageTickets(m *domain.Member) bool {
	if p.IsStaff(m) {
		return true
	}
	for _, r := range p.supportRoles {
		if m.HasRole(r) {
			return true
		}
	}
	return false
}
