package models

import "github.com/mikespook/gorbac"

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

const (
	PermModerate            = "content.moderate"
	PermManageConfiguration = "configuration.manage"
	PermManageRoles         = "users.roles"
)

// Permissions resolves role grants. Admin inherits everything a moderator can
// do.
type Permissions struct {
	rbac  *gorbac.RBAC
	perms map[string]gorbac.Permission
}

func NewPermissions() *Permissions {
	p := &Permissions{
		rbac:  gorbac.New(),
		perms: make(map[string]gorbac.Permission),
	}

	grants := map[Role][]string{
		RoleUser:      nil,
		RoleModerator: {PermModerate},
		RoleAdmin:     {PermManageConfiguration, PermManageRoles},
	}
	for name, list := range grants {
		role := gorbac.NewStdRole(string(name))
		for _, id := range list {
			perm, ok := p.perms[id]
			if !ok {
				perm = gorbac.NewStdPermission(id)
				p.perms[id] = perm
			}
			_ = role.Assign(perm)
		}
		_ = p.rbac.Add(role)
	}
	_ = p.rbac.SetParent(string(RoleAdmin), string(RoleModerator))
	return p
}

// Granted reports whether role holds permission, directly or through a parent.
func (p *Permissions) Granted(role Role, permission string) bool {
	perm, ok := p.perms[permission]
	if !ok {
		return false
	}
	if role == "" {
		role = RoleUser
	}
	return p.rbac.IsGranted(string(role), perm, nil)
}

// IsModerator reports whether u may bypass ownership checks.
func (p *Permissions) IsModerator(u *User) bool {
	return u != nil && p.Granted(u.Role, PermModerate)
}
