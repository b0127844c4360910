package infra

import (
	"errors"
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

// References:
// https://github.com/pkg/errors/blob/master/stack.go

type Frame uintptr

func (frame Frame) pc() uintptr {
	return uintptr(frame) - 1
}

func (frame Frame) file() string {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknownFile"
	}
	f, _ := fn.FileLine(pc)
	return f
}

func (frame Frame) line() int {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return 0
	}
	_, l := fn.FileLine(pc)
	return l
}

func (frame Frame) name() string {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknownFunc"
	}
	return fn.Name()
}

// Format characters:
// %s - source file
// %d - source line
// %n - function name
// %v - verbose, equivalent to %s:%d
// %+s - full path, the root path is relative to the compile time GOPATH
// separated by \n\t (<function-name>\n\t<path>)
// %+v - equivalent to %+s:%d
func (frame Frame) Format(s fmt.State, verb rune) {
	switch verb {
	case 's':
		if s.Flag('+') {
			_, _ = io.WriteString(s, frame.name())
			_, _ = io.WriteString(s, "\n\t")
			_, _ = io.WriteString(s, frame.file())
		} else {
			_, _ = io.WriteString(s, path.Base(frame.file()))
		}
	case 'd':
		_, _ = io.WriteString(s, strconv.Itoa(frame.line()))
	case 'n':
		_, _ = io.WriteString(s, funcName(frame.name()))
	case 'v':
		frame.Format(s, 's')
		_, _ = io.WriteString(s, ":")
		frame.Format(s, 'd')
	}
}

// For fmt.Sprintf("%+v", frame).
// If json.Marshaler interface isn't implemented, the MarshalText method is used.
func (frame Frame) MarshalText() ([]byte, error) {
	name := frame.name()
	if name == "unknownFunc" {
		return []byte("unknownFrame"), nil
	}
	builder := strings.Builder{}
	_, _ = builder.WriteString(name)
	_, _ = builder.WriteString(" ")
	_, _ = builder.WriteString(frame.file())
	_, _ = builder.WriteString(":")
	_, _ = builder.WriteString(strconv.Itoa(frame.line()))
	return []byte(builder.String()), nil
}

func (frame Frame) MarshalJSON() ([]byte, error) {
	name := frame.name()
	if name == "unknownFunc" {
		return []byte("{\"frame\":\"unknownFrame\"}"), nil
	}
	builder := strings.Builder{}
	_, _ = builder.WriteString("{")
	_, _ = builder.WriteString("\"func\":\"")
	_, _ = builder.WriteString(name)
	_, _ = builder.WriteString("\",")
	_, _ = builder.WriteString("\"fileAndLine\":\"")
	_, _ = builder.WriteString(frame.file())
	_, _ = builder.WriteString(":")
	_, _ = builder.WriteString(strconv.Itoa(frame.line()))
	_, _ = builder.WriteString("\"}")
	return []byte(builder.String()), nil
}

func funcName(name string) string {
	i := strings.LastIndex(name, "/")
	name = name[i+1:]
	i = strings.Index(name, ".")
	return name[i+1:]
}

const maxStackDepth = 32

type stack []Frame

func callers(skip int) stack {
	var pcs [maxStackDepth]uintptr
	n := runtime.Callers(skip, pcs[:])
	st := make(stack, 0, n)
	for i := 0; i < n; i++ {
		st = append(st, Frame(pcs[i]))
	}
	return st
}

func (st stack) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, frame := range st {
		text, _ := frame.MarshalText()
		enc.AppendByteString(text)
	}
	return nil
}

// ErrorStack carries the errors and the call stack where it was created.
// It is able to be inlined into the zap fields.
type ErrorStack interface {
	error
	zapcore.ObjectMarshaler
	Unwrap() []error
}

var _ ErrorStack = (*errorStack)(nil)

type errorStack struct {
	errs  []error
	stack stack
}

func (es *errorStack) Error() string {
	return multierr.Combine(es.errs...).Error()
}

func (es *errorStack) Unwrap() []error {
	return es.errs
}

func (es *errorStack) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	err := enc.AddArray("errors", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		for _, e := range es.errs {
			arr.AppendString(e.Error())
		}
		return nil
	}))
	return multierr.Append(err, enc.AddArray("errorStack", es.stack))
}

// Format characters:
// %s, %v - the error messages
// %+v - the error messages and the stack frames, one frame per line
func (es *errorStack) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		_, _ = io.WriteString(s, es.Error())
		if s.Flag('+') {
			for _, frame := range es.stack {
				_, _ = io.WriteString(s, "\n")
				frame.Format(s, verb)
			}
		}
	case 's':
		_, _ = io.WriteString(s, es.Error())
	}
}

func NewErrorStack(msg string) error {
	return &errorStack{
		errs:  []error{errors.New(msg)},
		stack: callers(3),
	}
}

// WrapErrorStack keeps the existing stack if err is already an ErrorStack.
func WrapErrorStack(err error) error {
	if err == nil {
		return nil
	}
	var es *errorStack
	if errors.As(err, &es) {
		return err
	}
	return &errorStack{
		errs:  multierr.Errors(err),
		stack: callers(3),
	}
}

// WrapErrorStackWithMessage prepends a message to the errors. The message
// is kept as a separate error so that errors.Is still sees the causes.
func WrapErrorStackWithMessage(err error, msg string) error {
	if err == nil {
		return nil
	}
	var (
		es   *errorStack
		errs = []error{errors.New(msg)}
	)
	if errors.As(err, &es) {
		return &errorStack{
			errs:  append(errs, es.errs...),
			stack: es.stack,
		}
	}
	return &errorStack{
		errs:  append(errs, multierr.Errors(err)...),
		stack: callers(3),
	}
}
