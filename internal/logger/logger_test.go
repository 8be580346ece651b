package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level       string
		wantEnabled zapcore.Level
		wantOff     zapcore.Level
	}{
		{"", zapcore.InfoLevel, zapcore.DebugLevel},
		{"info", zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"ERROR", zapcore.ErrorLevel, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(tt.level)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.wantEnabled))
			assert.False(t, l.Core().Enabled(tt.wantOff))
		})
	}
}

func TestNew_Debug(t *testing.T) {
	l, err := New("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("chatty")
	assert.Error(t, err)
}
