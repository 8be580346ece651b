package app

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/user/jd-scraper/internal/config"
	"go.uber.org/zap"
)

func TestNew_ConfigErrors(t *testing.T) {
	tests := map[string]config.Config{
		"missing profiles file": {
			BrowserEngine: config.EngineChromedp,
			ProfilesFile:  filepath.Join(t.TempDir(), "nope.yaml"),
		},
		"unknown engine": {
			BrowserEngine: "netscape",
			TimeoutMS:     1000,
		},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			e, err := New(&cfg, zap.NewNop(), prometheus.NewRegistry())
			assert.Error(t, err)
			assert.Nil(t, e)
		})
	}
}
