// Package harness runs code under test with its diagnostic output captured.
package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// mu serializes captures; the standard logger and os.Stderr are process-wide.
var mu sync.Mutex

// RunSilent calls fn with args while everything written to the logrus
// standard logger and to os.Stderr is captured instead of printed, and returns
// the captured text. If fn's last result is a non-nil error it is returned
// alongside the output. A panic in fn is recovered and reported as an error.
func RunSilent(fn any, args ...any) (output string, err error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return "", fmt.Errorf("harness: fn must be a function, got %T", fn)
	}
	in, err := buildArgs(fv.Type(), args)
	if err != nil {
		return "", err
	}

	mu.Lock()
	defer mu.Unlock()

	var logBuf bytes.Buffer
	logger := logrus.StandardLogger()
	prevOut := logger.Out
	logger.SetOutput(&logBuf)

	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		logger.SetOutput(prevOut)
		return "", fmt.Errorf("harness: failed to create pipe: %w", pipeErr)
	}
	prevStderr := os.Stderr
	os.Stderr = w

	var stderrBuf bytes.Buffer
	copied := make(chan struct{})
	go func() {
		_, _ = io.Copy(&stderrBuf, r)
		close(copied)
	}()

	defer func() {
		os.Stderr = prevStderr
		logger.SetOutput(prevOut)
		_ = w.Close()
		<-copied
		_ = r.Close()
		output = logBuf.String() + stderrBuf.String()
	}()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("harness: function panicked: %v", p)
		}
	}()

	out := fv.Call(in)
	if n := len(out); n > 0 && fv.Type().Out(n-1).Implements(errorType) {
		if e, ok := out[n-1].Interface().(error); ok && e != nil {
			err = e
		}
	}
	return "", err
}

func buildArgs(ft reflect.Type, args []any) ([]reflect.Value, error) {
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("harness: want at least %d arguments, got %d", fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("harness: want %d arguments, got %d", fixed, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if i < fixed {
			pt = ft.In(i)
		} else {
			pt = ft.In(ft.NumIn() - 1).Elem()
		}

		if arg == nil {
			switch pt.Kind() {
			case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
				in[i] = reflect.Zero(pt)
				continue
			}
			return nil, fmt.Errorf("harness: argument %d: nil is not assignable to %s", i, pt)
		}

		v := reflect.ValueOf(arg)
		switch {
		case v.Type().AssignableTo(pt):
		case v.Type().ConvertibleTo(pt) && (pt.Kind() != reflect.String || v.Kind() == reflect.String):
			v = v.Convert(pt)
		default:
			return nil, fmt.Errorf("harness: argument %d: %s is not assignable to %s", i, v.Type(), pt)
		}
		in[i] = v
	}
	return in, nil
}
