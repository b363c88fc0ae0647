package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File = filepath.Join(t.TempDir(), "dormform.log")

	log, err := New(cfg)
	require.NoError(t, err)
	log.Info("session created", zap.String("session", "42"))
	log.Debug("below level")
	_ = log.Sync()

	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"session created"`)
	assert.Contains(t, string(data), `"session":"42"`)
	assert.NotContains(t, string(data), "below level")
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "未知级别", cfg: Config{Level: "loud"}},
		{name: "未知格式", cfg: Config{Level: "info", Format: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			assert.Error(t, err)
			assert.Nil(t, log)
		})
	}
}

func TestNew_Development(t *testing.T) {
	log, err := New(Config{Level: "debug", Format: FormatJSON, Development: true})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}
