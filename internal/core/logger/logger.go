package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"club-api/internal/core/config"
)

func level(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.Set(s); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoder(json bool) zapcore.Encoder {
	if json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// FromConfig 控制台必写；File.Enable 时再 tee 一份到 lumberjack 切割文件。
// JSON 视为生产模式，控制台格式带 Development 选项
func FromConfig(c config.Log, fields ...zap.Field) (*zap.Logger, func()) {
	lvl := level(c.Level)
	enc := encoder(c.JSON)

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)}
	var rot *lumberjack.Logger
	if c.File.Enable {
		rot = &lumberjack.Logger{
			Filename:   c.File.Filename,
			MaxSize:    max(1, c.File.MaxSizeMB),
			MaxBackups: max(0, c.File.MaxBackups),
			MaxAge:     max(0, c.File.MaxAgeDays),
			Compress:   c.File.Compress,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rot), lvl))
	}

	// 同一秒内同样的消息超过 100 条后每 100 条留 1 条
	core := zapcore.NewSamplerWithOptions(zapcore.NewTee(cores...), time.Second, 100, 100)
	opts := []zap.Option{zap.AddCaller(), zap.Fields(fields...)}
	if !c.JSON {
		opts = append(opts, zap.Development())
	}
	l := zap.New(core, opts...)
	return l, func() {
		_ = l.Sync()
		if rot != nil {
			_ = rot.Close()
		}
	}
}

type lineWriter struct {
	l     *zap.Logger
	level zapcore.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	if ce := w.l.Check(w.level, msg); ce != nil {
		ce.Write()
	}
	return len(p), nil
}

// ToWriter 把 gorm 之类按行写日志的组件接到 zap
func ToWriter(l *zap.Logger, level zapcore.Level) io.Writer {
	return &lineWriter{l: l, level: level}
}

// ToStdLogger http.Server.ErrorLog 用
func ToStdLogger(l *zap.Logger, level zapcore.Level) (*log.Logger, error) {
	return zap.NewStdLogAt(l, level)
}

// RedirectStdLog 接管标准库 log 的输出，返回值用于还原
func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l, level)
	if err != nil {
		return func() {}
	}
	return undo
}
