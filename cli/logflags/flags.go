// Package logflags builds zap loggers from command-line flags.
package logflags

import (
	"fmt"
	"os"

	"github.com/brimdata/htsql/compiler"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Flags struct {
	Level   string
	Path    string
	MaxSize int
	JSON    bool
	fs      *pflag.FlagSet
}

func (f *Flags) SetFlags(fs *pflag.FlagSet) {
	f.fs = fs
	fs.StringVar(&f.Level, "log.level", "warn", "logging level (debug, info, warn, error)")
	fs.StringVar(&f.Path, "log.path", "stderr", "path for log output (stderr, stdout or a file)")
	fs.IntVar(&f.MaxSize, "log.maxsize", 100, "size in megabytes at which a log file is rotated")
	fs.BoolVar(&f.JSON, "log.json", false, "write log records as JSON")
}

// Apply takes settings from conf for flags that were not given on the
// command line.
func (f *Flags) Apply(conf compiler.LogConfig) {
	if conf.Level != "" && !f.changed("log.level") {
		f.Level = conf.Level
	}
	if conf.Path != "" && !f.changed("log.path") {
		f.Path = conf.Path
	}
}

func (f *Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

func (f *Flags) Open() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(f.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	var sink zapcore.WriteSyncer
	switch f.Path {
	case "", "stderr":
		sink = zapcore.Lock(os.Stderr)
	case "stdout":
		sink = zapcore.Lock(os.Stdout)
	default:
		if f.MaxSize <= 0 {
			return nil, fmt.Errorf("log.maxsize must be positive: %d", f.MaxSize)
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   f.Path,
			MaxSize:    f.MaxSize,
			MaxBackups: 3,
		})
	}
	return zap.New(zapcore.NewCore(f.encoder(), sink, level)), nil
}

func (f *Flags) encoder() zapcore.Encoder {
	if f.JSON {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	conf := zap.NewDevelopmentEncoderConfig()
	conf.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewConsoleEncoder(conf)
}
