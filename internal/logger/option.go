package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// leveledCore overrides the level of the core it wraps.
// Entries the wrapped core would drop are written when they pass the override.
type leveledCore struct {
	zapcore.Core

	// enabler decides which entries are written.
	enabler zapcore.LevelEnabler
}

// Enabled reports whether the override accepts lvl.
func (c *leveledCore) Enabled(lvl zapcore.Level) bool {
	return c.enabler.Enabled(lvl)
}

// Check adds the core to the entry when the override accepts its level.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *leveledCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

// With keeps the override on the child core.
//
//nolint:ireturn,nolintlint // Returning zapcore.Core is intended for zap integration.
func (c *leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return &leveledCore{Core: c.Core.With(fields), enabler: c.enabler}
}

// WithLevel derives a logger with its own minimum level, independent of SetLevel.
// The helper CLI uses it to stay quiet by default while the daemon logs at info.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &leveledCore{Core: core, enabler: lvl}
	})
}
