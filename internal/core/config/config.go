package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name        string
	Env         string
	FrontendURL string `mapstructure:"frontendURL"`
	HTTP        HTTP
	Admin       AdminHTTP
}

func (a App) IsProduction() bool { return strings.EqualFold(a.Env, "production") }

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

// JWT 四类令牌各自独立密钥
type JWT struct {
	Issuer            string
	AccessSecret      string `mapstructure:"accessSecret"`
	RefreshSecret     string `mapstructure:"refreshSecret"`
	SignupSecret      string `mapstructure:"signupSecret"`
	ResetSecret       string `mapstructure:"resetSecret"`
	AccessTokenTTLMin int    `mapstructure:"accessTokenTTLMin"`
	RefreshTTLHours   int    `mapstructure:"refreshTTLHours"`
	SignupTTLHours    int    `mapstructure:"signupTTLHours"`
	ResetTTLMin       int    `mapstructure:"resetTTLMin"`
}

func (j JWT) AccessTTL() time.Duration  { return time.Duration(j.AccessTokenTTLMin) * time.Minute }
func (j JWT) RefreshTTL() time.Duration { return time.Duration(j.RefreshTTLHours) * time.Hour }
func (j JWT) SignupTTL() time.Duration  { return time.Duration(j.SignupTTLHours) * time.Hour }
func (j JWT) ResetTTL() time.Duration   { return time.Duration(j.ResetTTLMin) * time.Minute }

type Cookie struct {
	Enabled bool
	Domain  string
	Secure  bool
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type RateLimit struct {
	RPS      float64
	Burst    int
	WindowMS int `mapstructure:"windowMS"` // 认证接口每 IP 窗口
	Max      int
}

type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttlSec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Mail struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type AMQP struct {
	Enabled bool
	URL     string
	Queue   string
}

type Storage struct {
	Driver          string // "" | s3 | gcs
	Bucket          string
	Endpoint        string
	Region          string
	AccessKey       string `mapstructure:"accessKey"`
	SecretKey       string `mapstructure:"secretKey"`
	PublicBaseURL   string `mapstructure:"publicBaseURL"`
	CredentialsFile string `mapstructure:"credentialsFile"`
}

type SeedAdmin struct {
	Email     string
	Password  string
	FirstName string `mapstructure:"firstName"`
	LastName  string `mapstructure:"lastName"`
}

type Seed struct {
	Admin SeedAdmin
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	Cookie    Cookie
	CORS      CORS `mapstructure:"cors"`
	RateLimit RateLimit
	DB        DB
	Redis     Redis `mapstructure:"redis"`
	Mail      Mail
	AMQP      AMQP `mapstructure:"amqp"`
	Storage   Storage
	Seed      Seed
}

// 老部署沿用的环境变量名
var legacyEnv = map[string]string{
	"jwt.accessSecret":   "SECRET_KEY_ACCESS_TOKEN",
	"jwt.refreshSecret":  "SECRET_KEY_REFRESH_TOKEN",
	"jwt.signupSecret":   "SECRET_KEY_SIGNUP_TOKEN",
	"jwt.resetSecret":    "SECRET_KEY_RESET_PASSWORD",
	"mail.host":          "EMAIL_HOST",
	"mail.port":          "EMAIL_PORT",
	"mail.user":          "EMAIL_USER",
	"mail.password":      "EMAIL_PASS",
	"mail.from":          "EMAIL_FROM",
	"app.frontendURL":    "FRONTEND_URL",
	"rateLimit.windowMS": "RATE_LIMIT_WINDOW_MS",
	"rateLimit.max":      "RATE_LIMIT_MAX",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "club-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.frontendURL", "http://localhost:5173")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 10)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.issuer", "club-api")
	v.SetDefault("jwt.accessTokenTTLMin", 15)
	v.SetDefault("jwt.refreshTTLHours", 24*7)
	v.SetDefault("jwt.signupTTLHours", 48)
	v.SetDefault("jwt.resetTTLMin", 60)
	v.SetDefault("cookie.enabled", true)
	v.SetDefault("rateLimit.rps", 200)
	v.SetDefault("rateLimit.burst", 400)
	v.SetDefault("rateLimit.windowMS", 15*60*1000)
	v.SetDefault("rateLimit.max", 100)
	v.SetDefault("redis.ttlSec", 60)
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("mail.port", 587)
	v.SetDefault("amqp.queue", "mail.outbound")
}

// Load 读取 YAML + APP_* 环境变量；文件不存在时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate 启动前检查：密钥必须存在且互不相同
func (c *Config) Validate() error {
	secrets := map[string]string{
		"jwt.accessSecret":  c.JWT.AccessSecret,
		"jwt.refreshSecret": c.JWT.RefreshSecret,
		"jwt.signupSecret":  c.JWT.SignupSecret,
		"jwt.resetSecret":   c.JWT.ResetSecret,
	}
	seen := map[string]string{}
	for name, s := range secrets {
		if s == "" {
			return fmt.Errorf("config: %s is empty", name)
		}
		if other, dup := seen[s]; dup {
			return fmt.Errorf("config: %s and %s share the same secret", name, other)
		}
		seen[s] = name
	}
	if c.DB.Driver == "" {
		return errors.New("config: db.driver is empty")
	}
	return nil
}
