package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	coreauth "club-api/internal/core/auth"
	"club-api/internal/core/cache"
	"club-api/internal/core/config"
	"club-api/internal/core/database"
	"club-api/internal/core/logger"
	"club-api/internal/core/mail"
	"club-api/internal/core/queue"
	"club-api/internal/core/storage"
	"club-api/internal/feature/article"
	"club-api/internal/feature/auth"
	"club-api/internal/feature/convocation"
	"club-api/internal/feature/kit"
	"club-api/internal/feature/message"
	"club-api/internal/feature/reference"
	"club-api/internal/feature/team"
	"club-api/internal/feature/training"
	"club-api/internal/feature/user"
	"club-api/internal/repo"
	mdw "club-api/internal/transport/http/middleware"
	"club-api/internal/transport/http/router"
	"club-api/pkg/utils"
)

// App 两个进程共用的装配结果
type App struct {
	Cfg     *config.Config
	Log     *zap.Logger
	DB      *gorm.DB
	Cache   *cache.Cache
	Ref     *repo.Reference
	Members *repo.Memberships
	JWT     *coreauth.JWTer
	Hasher  *utils.Hasher
	Outbox  mail.Outbox
	Store   storage.ObjectStore
	Auth    *auth.Service
	Cookies mdw.Cookies
	Session gin.HandlerFunc

	closers []func() error
}

func NewJWTer(c config.JWT) *coreauth.JWTer {
	return coreauth.NewJWTer(c.Issuer, map[coreauth.Kind]coreauth.KeySpec{
		coreauth.KindAccess:  {Secret: []byte(c.AccessSecret), TTL: c.AccessTTL()},
		coreauth.KindRefresh: {Secret: []byte(c.RefreshSecret), TTL: c.RefreshTTL()},
		coreauth.KindSignup:  {Secret: []byte(c.SignupSecret), TTL: c.SignupTTL()},
		coreauth.KindReset:   {Secret: []byte(c.ResetSecret), TTL: c.ResetTTL()},
	})
}

// New 连库、迁移、种子数据、外部依赖；失败时已打开的资源会被关闭
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{Cfg: cfg, Log: log, Hasher: utils.NewHasher(0)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	opts := database.OptsFromConfig(cfg.DB)
	opts.LogWriter = logger.ToWriter(log.Named("gorm"), zapcore.WarnLevel)
	opts.Log = log
	if a.DB, err = database.NewGorm(opts); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if sqlDB, e := a.DB.DB(); e == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err = database.Migrate(a.DB); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("automigrate done")
	}
	if err = database.Seed(a.DB, a.adminSeed(), log); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	if a.Ref, err = repo.LoadReference(ctx, a.DB); err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	a.Members = repo.NewMemberships(a.Ref)

	if cfg.Redis.Enabled {
		a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, time.Duration(cfg.Redis.TTLSec)*time.Second)
		a.closers = append(a.closers, a.Cache.Close)
		if e := a.Cache.RDB.Ping(ctx).Err(); e != nil {
			// 缓存只是加速，连不上照样启动
			log.Warn("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(e))
		}
	}

	if cfg.AMQP.Enabled {
		pub := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log)
		a.closers = append(a.closers, pub.Close)
		a.Outbox = pub
	} else {
		a.Outbox = mail.NewAsyncOutbox(mail.NewSMTPSender(cfg.Mail), log, 4)
	}

	if a.Store, err = storage.New(ctx, cfg.Storage); err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	if a.Store == nil {
		log.Warn("object storage disabled, cover uploads will return 503")
	}

	a.JWT = NewJWTer(cfg.JWT)
	a.Auth = auth.NewService(a.DB, a.Members, a.JWT, a.Hasher, a.Outbox, cfg.App.FrontendURL, log)
	a.Cookies = mdw.Cookies{
		Enabled:    cfg.Cookie.Enabled,
		Domain:     cfg.Cookie.Domain,
		Production: cfg.App.IsProduction(),
		Secure:     cfg.Cookie.Secure,
		AccessTTL:  cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
	}
	a.Session = (&mdw.Session{JWT: a.JWT, Refresher: a.Auth, Cookies: a.Cookies, Log: log}).Handler()
	return a, nil
}

func (a *App) adminSeed() *database.AdminSeed {
	s := a.Cfg.Seed.Admin
	if s.Email == "" || s.Password == "" {
		return nil
	}
	hash, err := a.Hasher.Hash(s.Password)
	if err != nil {
		a.Log.Warn("hash seed admin password", zap.Error(err))
		return nil
	}
	return &database.AdminSeed{
		Email:        repo.NormalizeEmail(s.Email),
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		PasswordHash: hash,
	}
}

func (a *App) Deps() kit.Deps {
	return kit.Deps{DB: a.DB, Cache: a.Cache, Log: a.Log, Session: a.Session, Ref: a.Ref, Members: a.Members}
}

// Register 把全部功能模块登记到路由注册表
func (a *App) Register() {
	d := a.Deps()
	window := time.Duration(a.Cfg.RateLimit.WindowMS) * time.Millisecond

	router.Register(&auth.Module{Deps: d, Svc: a.Auth, Cookies: a.Cookies, Limiter: mdw.RateLimitWindow(window, a.Cfg.RateLimit.Max)})
	router.Register(&reference.Module{Deps: d})
	router.Register(&user.Module{Deps: d, Svc: user.NewService(a.DB, a.Ref, a.Members)})
	router.Register(&training.Module{Deps: d, Svc: training.NewService(a.Ref)})
	router.Register(&team.Module{Deps: d, Svc: team.NewService(a.Ref)})
	router.Register(&convocation.Module{Deps: d, Svc: convocation.NewService()})
	router.Register(&article.Module{Deps: d, Svc: article.NewService(a.DB, a.Ref, a.Store, a.Log)})
	router.Register(&message.Module{Deps: d, Svc: message.NewService(a.Ref)})
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.Log != nil {
			a.Log.Warn("close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
