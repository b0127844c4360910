package xlog

import (
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xsymtab/lib/infra"
)

// coreEncoding is inherited by the component cores from the parent.
type coreEncoding struct {
	lvlEnc zapcore.LevelEncoder
	tsEnc  zapcore.TimeEncoder
	ws     zapcore.WriteSyncer
	enc    func(cfg zapcore.EncoderConfig) zapcore.Encoder
}

var _ XLogCore = (*xLogCore)(nil)

type xLogCore struct {
	zapcore.Core
	enc coreEncoding
}

func (c *xLogCore) encoding() coreEncoding {
	return c.enc
}

// newXLogCore copies cfg, the shared configs stay untouched.
func newXLogCore(lvlEnabler zapcore.LevelEnabler, enc coreEncoding, cfg zapcore.EncoderConfig) *xLogCore {
	cfg.EncodeLevel = enc.lvlEnc
	cfg.EncodeTime = enc.tsEnc
	return &xLogCore{
		Core: zapcore.NewCore(enc.enc(cfg), enc.ws, lvlEnabler),
		enc:  enc,
	}
}

var consoleCoreEncoderCfg = zapcore.EncoderConfig{
	MessageKey:    "msg",
	LevelKey:      "lvl",
	TimeKey:       "ts",
	CallerKey:     "callAt",
	EncodeCaller:  zapcore.ShortCallerEncoder,
	FunctionKey:   "fn",
	NameKey:       "component",
	EncodeName:    zapcore.FullNameEncoder,
	StacktraceKey: coreKeyIgnored,
}

// The component loggers drop the caller, the adapters are the callers.
var componentCoreEncoderCfg = &zapcore.EncoderConfig{
	MessageKey:    "msg",
	LevelKey:      "lvl",
	TimeKey:       "ts",
	CallerKey:     coreKeyIgnored,
	EncodeCaller:  zapcore.ShortCallerEncoder,
	FunctionKey:   coreKeyIgnored,
	NameKey:       "component",
	EncodeName:    zapcore.FullNameEncoder,
	StacktraceKey: coreKeyIgnored,
}

// newConsoleCore writes to the registered writer, an unknown writer
// gets no core.
func newConsoleCore(
	lvlEnabler zapcore.LevelEnabler,
	encoder logEncoderType,
	writer logOutWriterType,
	lvlEnc zapcore.LevelEncoder,
	tsEnc zapcore.TimeEncoder,
) XLogCore {
	if writer >= _writerMax || lvlEnabler == nil {
		return nil
	}
	return newXLogCore(lvlEnabler, coreEncoding{
		lvlEnc: lvlEnc,
		tsEnc:  tsEnc,
		ws:     getOutWriterByType(writer),
		enc:    getEncoderByType(encoder),
	}, consoleCoreEncoderCfg)
}

// xLogCores fans out the entries to every core.
type xLogCores []XLogCore

func teeCores(cores []XLogCore) zapcore.Core {
	switch len(cores) {
	case 0:
		return zapcore.NewNopCore()
	case 1:
		return cores[0]
	}
	return xLogCores(cores)
}

func (cs xLogCores) Enabled(lvl zapcore.Level) bool {
	return lo.ContainsBy(cs, func(c XLogCore) bool {
		return c.Enabled(lvl)
	})
}

func (cs xLogCores) With(fields []zap.Field) zapcore.Core {
	return zapcore.NewTee(lo.Map(cs, func(c XLogCore, _ int) zapcore.Core {
		return c.With(fields)
	})...)
}

func (cs xLogCores) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	for _, c := range cs {
		ce = c.Check(ent, ce)
	}
	return ce
}

func (cs xLogCores) Write(ent zapcore.Entry, fields []zap.Field) (err error) {
	for _, c := range cs {
		err = multierr.Append(err, c.Write(ent, fields))
	}
	return err
}

func (cs xLogCores) Sync() (err error) {
	for _, c := range cs {
		err = multierr.Append(err, c.Sync())
	}
	return err
}

// rewrapCore rebuilds every core with cfg. A nil lvlEnabler follows
// the level of the rebuilt core.
func rewrapCore(core zapcore.Core, lvlEnabler zapcore.LevelEnabler, cfg *zapcore.EncoderConfig) (zapcore.Core, error) {
	if cfg == nil {
		return nil, infra.NewErrorStack("[XLogger] logger core config is empty")
	}
	switch c := core.(type) {
	case nil:
		return nil, infra.NewErrorStack("[XLogger] logger core is nil")
	case xLogCores:
		cores := make(xLogCores, 0, len(c))
		for _, sub := range c {
			if sub == nil {
				return nil, infra.NewErrorStack("[XLogger] logger core is nil")
			}
			wrapped, err := rewrapCore(sub, lvlEnabler, cfg)
			if err != nil {
				return nil, err
			}
			cores = append(cores, wrapped.(XLogCore))
		}
		return cores, nil
	case XLogCore:
		enabler := lvlEnabler
		if enabler == nil {
			enabler = zap.LevelEnablerFunc(c.Enabled)
		}
		return newXLogCore(enabler, c.encoding(), *cfg), nil
	}
	return nil, infra.NewErrorStack("[XLogger] logger core is not XLogCore")
}
