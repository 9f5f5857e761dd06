package zap

import (
	"fmt"
	"strings"

	"github.com/pwnedgod/carrier/logger"
	"go.uber.org/zap"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func NewLogger(l *zap.Logger) logger.Logger {
	return &zapLogger{
		sugar: l.Sugar(),
	}
}

func (l zapLogger) Info(args ...interface{}) {
	if msg, kv, ok := split(args); ok {
		l.sugar.Infow(msg, kv...)
		return
	}
	l.sugar.Info(sprint(args))
}

func (l zapLogger) Debug(args ...interface{}) {
	if msg, kv, ok := split(args); ok {
		l.sugar.Debugw(msg, kv...)
		return
	}
	l.sugar.Debug(sprint(args))
}

func (l zapLogger) Error(args ...interface{}) {
	if msg, kv, ok := split(args); ok {
		l.sugar.Errorw(msg, kv...)
		return
	}
	l.sugar.Error(sprint(args))
}

// split accepts "msg, key, value, ..." with string keys only; anything else
// is logged as a plain message.
func split(args []interface{}) (string, []interface{}, bool) {
	if len(args) == 0 {
		return "", nil, false
	}

	msg, ok := args[0].(string)
	if !ok {
		return "", nil, false
	}

	kv := args[1:]
	if len(kv)%2 != 0 {
		return "", nil, false
	}
	for i := 0; i < len(kv); i += 2 {
		if _, ok := kv[i].(string); !ok {
			return "", nil, false
		}
	}
	return msg, kv, true
}

func sprint(args []interface{}) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}
