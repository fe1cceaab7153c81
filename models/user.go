package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleEmployee       Role = "EMPLOYEE"
	RoleManager        Role = "MANAGER"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleCCManager      Role = "CC_MANAGER"
)

// User is an identity as returned by the identity service. It is never
// persisted here.
type User struct {
	EmployeeCode string `json:"employeeCode"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	ManagerCode  string `json:"managerCode"`
}

func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.EmployeeCode
}

// Principal is the authenticated caller of a request.
type Principal struct {
	EmployeeCode string
	Roles        []Role
}

func (p *Principal) HasRole(roles ...Role) bool {
	for _, have := range p.Roles {
		if have == RoleAdmin {
			return true
		}
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// CanActFor reports whether the caller may read or write employeeCode's
// timesheets directly.
func (p *Principal) CanActFor(employeeCode string) bool {
	return p.IsAdmin() || p.EmployeeCode == employeeCode
}

// ServiceAccount is a machine client allowed to exchange its secret for a
// bearer token.
type ServiceAccount struct {
	ClientID     string     `gorm:"primaryKey;size:100" json:"clientId"`
	SecretHash   string     `gorm:"not null" json:"-"`
	EmployeeCode string     `gorm:"size:50;not null" json:"employeeCode"`
	Roles        string     `gorm:"size:200;not null" json:"roles"`
	Active       bool       `gorm:"not null" json:"active"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`
	Audit
}

func (ServiceAccount) TableName() string {
	return "service_accounts"
}

func (a *ServiceAccount) RoleList() []Role {
	var roles []Role
	for _, r := range strings.Split(a.Roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, Role(strings.ToUpper(r)))
		}
	}
	return roles
}

func JoinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}
