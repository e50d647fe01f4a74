package auth

// Identity 已认证请求的调用者
type Identity struct {
	UserID uint
	Roles  []RoleClaim
}

func IdentityFromClaims(c *Claims) Identity {
	return Identity{UserID: c.UserID, Roles: c.Roles}
}

func (id Identity) HasAnyRole(allowed ...uint) bool {
	for _, r := range id.Roles {
		for _, a := range allowed {
			if r.RoleID == a {
				return true
			}
		}
	}
	return false
}

// CategoryIDs 去重后的分类 ID，保持首次出现顺序
func (id Identity) CategoryIDs() []uint {
	seen := make(map[uint]struct{}, len(id.Roles))
	out := make([]uint, 0, len(id.Roles))
	for _, r := range id.Roles {
		if r.CategoryID == nil {
			continue
		}
		if _, ok := seen[*r.CategoryID]; ok {
			continue
		}
		seen[*r.CategoryID] = struct{}{}
		out = append(out, *r.CategoryID)
	}
	return out
}

func (id Identity) InCategory(categoryID uint) bool {
	for _, r := range id.Roles {
		if r.CategoryID != nil && *r.CategoryID == categoryID {
			return true
		}
	}
	return false
}

type TokenPair struct {
	Access  string `json:"token"`
	Refresh string `json:"refreshToken,omitempty"`
}
