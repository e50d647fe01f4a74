package repo

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"

	"club-api/internal/domain"
)

// Reference 角色/分类只读字典，启动时加载一次
type Reference struct {
	roles      map[uint]domain.Role
	roleNames  map[string]uint
	categories map[uint]domain.Category
	catNames   map[string]uint
}

func LoadReference(ctx context.Context, db *gorm.DB) (*Reference, error) {
	var roles []domain.Role
	if err := db.WithContext(ctx).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	var cats []domain.Category
	if err := db.WithContext(ctx).Order("id").Find(&cats).Error; err != nil {
		return nil, err
	}
	return NewReference(roles, cats), nil
}

func NewReference(roles []domain.Role, cats []domain.Category) *Reference {
	r := &Reference{
		roles:      make(map[uint]domain.Role, len(roles)),
		roleNames:  make(map[string]uint, len(roles)),
		categories: make(map[uint]domain.Category, len(cats)),
		catNames:   make(map[string]uint, len(cats)),
	}
	for _, x := range roles {
		r.roles[x.ID] = x
		r.roleNames[strings.ToLower(x.Name)] = x.ID
	}
	for _, x := range cats {
		r.categories[x.ID] = x
		r.catNames[strings.ToLower(x.Name)] = x.ID
	}
	return r
}

func (r *Reference) Role(id uint) (domain.Role, bool) {
	x, ok := r.roles[id]
	return x, ok
}

func (r *Reference) RoleByName(name string) (domain.Role, bool) {
	id, ok := r.roleNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.Role{}, false
	}
	return r.roles[id], true
}

// ScopedRoleIDs 需要分类的角色
func (r *Reference) ScopedRoleIDs() []uint {
	var ids []uint
	for _, x := range r.Roles() {
		if x.Kind() == domain.RoleKindCategoryScoped {
			ids = append(ids, x.ID)
		}
	}
	return ids
}

func (r *Reference) Category(id uint) (domain.Category, bool) {
	x, ok := r.categories[id]
	return x, ok
}

func (r *Reference) CategoryByName(name string) (domain.Category, bool) {
	id, ok := r.catNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.Category{}, false
	}
	return r.categories[id], true
}

func (r *Reference) Roles() []domain.Role {
	out := make([]domain.Role, 0, len(r.roles))
	for _, x := range r.roles {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Reference) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(r.categories))
	for _, x := range r.categories {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
