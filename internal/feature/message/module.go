package message

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	httpez "club-api/internal/transport/http/ez"
	mdw "club-api/internal/transport/http/middleware"
)

type Module struct {
	kit.Deps
	Svc *Service
}

func (m *Module) Priority() int { return 80 }

func isAdmin(c *gin.Context) bool { return mdw.MustIdentity(c).HasAnyRole(domain.RoleAdmin) }

func (m *Module) MountAPI(api *gin.RouterGroup) {
	db := m.DB
	ez := m.Authed(api)
	admins := []uint{domain.RoleAdmin}

	// 私信
	httpez.RegisterAction(ez, db, httpez.Action[PrivateInput, *domain.PrivateMessage]{
		Method: http.MethodPost,
		Path:   "/messages/private",
		Binder: httpez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *PrivateInput) (*domain.PrivateMessage, error) {
			uid, _ := kit.Caller(c)
			return m.Svc.SendPrivate(tx, uid, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []ConversationSummary]{
		Method: http.MethodGet,
		Path:   "/messages/private",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]ConversationSummary, error) {
			uid, _ := kit.Caller(c)
			return m.Svc.Conversations(tx, uid)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []domain.PrivateMessage]{
		Method: http.MethodGet,
		Path:   "/messages/private/:otherUserId",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]domain.PrivateMessage, error) {
			other, err := httpez.ParamID(c, "otherUserId")
			if err != nil {
				return nil, err
			}
			uid, _ := kit.Caller(c)
			return m.Svc.Conversation(tx, uid, other)
		},
	})

	// 聊天群
	httpez.RegisterAction(ez, db, httpez.Action[GroupInput, *GroupView]{
		Method: http.MethodPost,
		Path:   "/chat-groups",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  admins,
		UseTx:  true,
		Status: http.StatusCreated,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *GroupInput) (*GroupView, error) {
			return m.Svc.CreateGroup(tx, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[GroupInput, *GroupView]{
		Method: http.MethodPut,
		Path:   "/chat-groups/:id",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  admins,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *GroupInput) (*GroupView, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.UpdateGroup(tx, id, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/chat-groups/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  admins,
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := m.Svc.DeleteGroup(tx, id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []domain.ChatGroup]{
		Method: http.MethodGet,
		Path:   "/chat-groups",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]domain.ChatGroup, error) {
			uid, _ := kit.Caller(c)
			return m.Svc.MyGroups(tx, uid)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, *domain.ChatGroup]{
		Method: http.MethodGet,
		Path:   "/chat-groups/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*domain.ChatGroup, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			uid, _ := kit.Caller(c)
			return m.Svc.Group(tx, id, uid, isAdmin(c))
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[PostInput, *domain.GroupMessage]{
		Method: http.MethodPost,
		Path:   "/chat-groups/:id/messages",
		Binder: httpez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, tx *gorm.DB, in *PostInput) (*domain.GroupMessage, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			uid, _ := kit.Caller(c)
			return m.Svc.Post(tx, id, uid, isAdmin(c), *in)
		},
	})
}
