package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/modbot/internal/config"
	"github.com/spec-kit/modbot/internal/domain"
)

func TestPermissions(t *testing.T) {
	p := NewPermissions(config.RolesConfig{Staff: "staff", Moderator: "mod", Admin: "admin"}, []string{"helper"})

	tests := []struct {
		name      string
		member    *domain.Member
		staff     bool
		moderator bool
		tickets   bool
	}{
		{"nil member", nil, false, false, false},
		{"plain member", &domain.Member{ID: "1"}, false, false, false},
		{"staff", &domain.Member{ID: "2", Roles: []string{"staff"}}, true, false, true},
		{"moderator", &domain.Member{ID: "3", Roles: []string{"mod"}}, true, true, true},
		{"admin role", &domain.Member{ID: "4", Roles: []string{"admin"}}, true, true, true},
		{"administrator flag", &domain.Member{ID: "5", Administrator: true}, true, true, true},
		{"support role", &domain.Member{ID: "6", Roles: []string{"helper"}}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.staff, p.IsStaff(tt.member))
			assert.Equal(t, tt.staff, p.CanManageSuggestions(tt.member))
			assert.Equal(t, tt.moderator, p.IsModerator(tt.member))
			assert.Equal(t, tt.moderator, p.CanModerate(tt.member))
			assert.Equal(t, tt.tickets, p.CanManageTickets(tt.member))
		})
	}
}

func TestEmptyRoleIDsNeverMatch(t *testing.T) {
	p := NewPermissions(config.RolesConfig{}, nil)
	m := &domain.Member{ID: "1", Roles: []string{""}}
	assert.False(t, p.IsStaff(m))
}
