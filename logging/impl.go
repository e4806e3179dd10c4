package logging

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// impl fans every entry out to its appenders. Subloggers share the appender slice and copy
// the level.
type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

// entry is one log line on its way to the appenders.
type entry struct {
	zapcore.Entry
	fields []zapcore.Field
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{name: name, level: NewAtomicLevelAt(imp.level.Get()), inUTC: imp.inUTC, appenders: imp.appenders}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

// AsZap builds a zap logger for libraries that want one. Appenders that are themselves
// `zapcore.Core`s (the test observer) are teed in so their output is not lost.
func (imp *impl) AsZap() *zap.SugaredLogger {
	config := NewLoggerConfig()
	config.Level = zap.NewAtomicLevelAt(imp.level.Get().AsZap())
	ret := zap.Must(config.Build()).Sugar().Named(imp.name)
	for _, appender := range imp.appenders {
		core, ok := appender.(zapcore.Core)
		if !ok {
			continue
		}
		ret = ret.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, core)
		}))
	}
	return ret
}

// enabled reports whether a line at level gets written. A traced context enables debug lines
// regardless of the logger's level.
func (imp *impl) enabled(ctx context.Context, level Level) bool {
	if level >= imp.level.Get() {
		return true
	}
	return level == DEBUG && TraceName(ctx) != ""
}

// newEntry must be called directly by one of log, logf or logw so the caller lookup lands on
// the code that called the public method.
func (imp *impl) newEntry(ctx context.Context, level Level, msg string) *entry {
	e := &entry{}
	e.Time = time.Now()
	if imp.inUTC {
		e.Time = e.Time.UTC()
	}
	e.Level = level.AsZap()
	e.LoggerName = imp.name
	e.Message = msg
	e.Caller = getCaller()
	if name := TraceName(ctx); name != "" {
		e.fields = append(e.fields, zap.String(TraceField, name))
	}
	return e
}

func (imp *impl) write(e *entry) {
	for _, appender := range imp.appenders {
		if err := appender.Write(e.Entry, e.fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

func (imp *impl) log(ctx context.Context, level Level, args []interface{}) {
	if !imp.enabled(ctx, level) {
		return
	}
	imp.write(imp.newEntry(ctx, level, fmt.Sprint(args...)))
}

func (imp *impl) logf(ctx context.Context, level Level, template string, args []interface{}) {
	if !imp.enabled(ctx, level) {
		return
	}
	imp.write(imp.newEntry(ctx, level, fmt.Sprintf(template, args...)))
}

// logw turns keysAndValues into zap fields: even elements are keys, each followed by its value.
func (imp *impl) logw(ctx context.Context, level Level, msg string, keysAndValues []interface{}) {
	if !imp.enabled(ctx, level) {
		return
	}
	e := imp.newEntry(ctx, level, msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			// keep the key visible rather than dropping it
			e.fields = append(e.fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		e.fields = append(e.fields, zap.Any(key, keysAndValues[i+1]))
	}
	imp.write(e)
}

func (imp *impl) Debug(args ...interface{}) { imp.log(context.Background(), DEBUG, args) }

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.logf(context.Background(), DEBUG, template, args)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.logw(context.Background(), DEBUG, msg, keysAndValues)
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	imp.logf(ctx, DEBUG, template, args)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.logw(ctx, DEBUG, msg, keysAndValues)
}

func (imp *impl) Info(args ...interface{}) { imp.log(context.Background(), INFO, args) }

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.logf(context.Background(), INFO, template, args)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.logw(context.Background(), INFO, msg, keysAndValues)
}

func (imp *impl) Warn(args ...interface{}) { imp.log(context.Background(), WARN, args) }

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.logf(context.Background(), WARN, template, args)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.logw(context.Background(), WARN, msg, keysAndValues)
}

func (imp *impl) Error(args ...interface{}) { imp.log(context.Background(), ERROR, args) }

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.logf(context.Background(), ERROR, template, args)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.logw(context.Background(), ERROR, msg, keysAndValues)
}

// Fatal logs at error level and exits.
func (imp *impl) Fatal(args ...interface{}) {
	imp.log(context.Background(), ERROR, args)
	os.Exit(1)
}

// Fatalf logs at error level and exits.
func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.logf(context.Background(), ERROR, template, args)
	os.Exit(1)
}

// getCaller skips itself, newEntry, the log/logf/logw helper and the public method.
func getCaller() zapcore.EntryCaller {
	const skip = 4
	var caller zapcore.EntryCaller
	var ok bool
	caller.PC, caller.File, caller.Line, ok = runtime.Caller(skip)
	if !ok {
		return caller
	}
	caller.Defined = true
	if fn := runtime.FuncForPC(caller.PC); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
