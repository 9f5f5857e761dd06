package zap_test

import (
	"errors"
	"testing"

	carrierzap "github.com/pwnedgod/carrier/logger/zap"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestKeyValuePairsBecomeFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := carrierzap.NewLogger(zap.New(core))

	l.Debug("marshal", "id", int64(3), "length", 223)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "marshal", entries[0].Message)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, map[string]interface{}{"id": int64(3), "length": int64(223)}, entries[0].ContextMap())
	}
}

func TestIrregularArgsAreLoggedAsMessage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := carrierzap.NewLogger(zap.New(core))

	l.Error(errors.New("boom"))
	l.Info("lock released", "slot###1", "extra")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "boom", entries[0].Message)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Empty(t, entries[0].Context)
		assert.Equal(t, "lock released slot###1 extra", entries[1].Message)
	}
}
