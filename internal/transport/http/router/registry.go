package router

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/gin-gonic/gin"
)

// APIModule / AdminModule 功能模块实现其一或两者
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// 数值越小越先挂，默认 100
type prioritizer interface{ Priority() int }

var (
	mu   sync.Mutex
	mods []any
)

// Register 两个接口都没实现视为装配错误
func Register(ms ...any) {
	mu.Lock()
	defer mu.Unlock()
	for _, m := range ms {
		_, api := m.(APIModule)
		_, admin := m.(AdminModule)
		if !api && !admin {
			panic(fmt.Sprintf("router: %T mounts nothing", m))
		}
		mods = append(mods, m)
	}
}

// Reset 清空注册表，测试用
func Reset() {
	mu.Lock()
	mods = nil
	mu.Unlock()
}

func ordered() []any {
	mu.Lock()
	out := slices.Clone(mods)
	mu.Unlock()
	slices.SortStableFunc(out, func(a, b any) int { return cmp.Compare(priorityOf(a), priorityOf(b)) })
	return out
}

// MountAllAPI 挂到 /api/v1
func MountAllAPI(api *gin.RouterGroup) {
	for _, m := range ordered() {
		if am, ok := m.(APIModule); ok {
			am.MountAPI(api)
		}
	}
}

// MountAllAdmin 挂到 /admin/v1
func MountAllAdmin(admin *gin.RouterGroup) {
	for _, m := range ordered() {
		if am, ok := m.(AdminModule); ok {
			am.MountAdmin(admin)
		}
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
