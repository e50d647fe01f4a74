package training

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"club-api/internal/core/cache"
	"club-api/internal/domain"
	"club-api/internal/feature/kit"
	httpez "club-api/internal/transport/http/ez"
)

type Module struct {
	kit.Deps
	Svc *Service
}

func (m *Module) Priority() int { return 40 }

var writers = []uint{domain.RoleCoach, domain.RoleAdmin}

type created struct {
	Training   *domain.Training `json:"training"`
	Subscribed int64            `json:"subscribed"`
}

func (m *Module) MountAPI(api *gin.RouterGroup) {
	db := m.DB
	ez := m.Authed(api)
	inv := []string{cache.PrefixTrainings}

	httpez.RegisterAction(ez, db, httpez.Action[Input, created]{
		Method:     http.MethodPost,
		Path:       "/trainings",
		Binder:     httpez.BindJSON,
		Auth:       true,
		Roles:      writers,
		UseTx:      true,
		Status:     http.StatusCreated,
		Invalidate: inv,
		Handler: func(c *gin.Context, tx *gorm.DB, in *Input) (created, error) {
			t, n, err := m.Svc.Create(tx, *in, kit.ManagerScope(c, domain.RoleCoach))
			return created{Training: t, Subscribed: n}, err
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[Input, *domain.Training]{
		Method:     http.MethodPut,
		Path:       "/trainings/:id",
		Binder:     httpez.BindJSON,
		Auth:       true,
		Roles:      writers,
		UseTx:      true,
		Invalidate: inv,
		Handler: func(c *gin.Context, tx *gorm.DB, in *Input) (*domain.Training, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Update(tx, id, *in, kit.ManagerScope(c, domain.RoleCoach))
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodDelete,
		Path:       "/trainings/:id",
		Binder:     httpez.BindNone,
		Auth:       true,
		Roles:      writers,
		UseTx:      true,
		Invalidate: inv,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := m.Svc.Delete(tx, id, kit.ManagerScope(c, domain.RoleCoach)); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[Filter, []domain.Training]{
		Method: http.MethodGet,
		Path:   "/trainings",
		Binder: httpez.BindQuery,
		Auth:   true,
		Cache:  cache.PrefixTrainings,
		Handler: func(_ *gin.Context, tx *gorm.DB, in *Filter) ([]domain.Training, error) {
			return m.Svc.List(tx, *in)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []Upcoming]{
		Method: http.MethodGet,
		Path:   "/trainings/upcoming",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]Upcoming, error) {
			uid, cats := kit.Caller(c)
			return m.Svc.Upcoming(tx, uid, cats)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, *Detail]{
		Method: http.MethodGet,
		Path:   "/trainings/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*Detail, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Get(tx, id)
		},
	})

	type attendanceIn struct {
		Status domain.AttendanceStatus `json:"status" binding:"required"`
	}
	httpez.RegisterAction(ez, db, httpez.Action[attendanceIn, *domain.TrainingUserStatus]{
		Method: http.MethodPut,
		Path:   "/trainings/:id/attendance",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *attendanceIn) (*domain.TrainingUserStatus, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			uid, _ := kit.Caller(c)
			return m.Svc.SetAttendance(c, tx, id, uid, in.Status)
		},
	})

	httpez.RegisterAction(ez, db, httpez.Action[struct{}, []RosterEntry]{
		Method: http.MethodGet,
		Path:   "/trainings/:id/attendance",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  writers,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) ([]RosterEntry, error) {
			id, err := httpez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.Svc.Roster(tx, id, kit.ManagerScope(c, domain.RoleCoach))
		},
	})
}
