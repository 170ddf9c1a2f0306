package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxforge9/clickpilot/api/schemas"
)

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2*time.Second, cfg.Engine.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.FollowUpDelay)
	assert.Equal(t, 10, cfg.Engine.MaxChainLength)
	assert.Equal(t, 15, cfg.Engine.SiblingWalkDepth)
	assert.Equal(t, 5, cfg.Engine.MessageLookback)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, schemas.DefaultManualWorkflowMs, cfg.ROI.ManualWorkflowMs)
}

func TestNewConfigFromViperAppliesOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("engine.poll_interval", "5s")
	v.Set("store.backend", "memory")
	v.Set("detector.override", "windsurf")
	v.Set("actions.enabled", map[string]bool{"run": false})

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Engine.PollInterval)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "windsurf", cfg.Detector.Override)

	enabled := cfg.Actions.EnabledTypes()
	assert.False(t, enabled[schemas.ActionRun])
	assert.True(t, enabled[schemas.ActionAccept], "unmentioned types stay enabled")
}

func TestValidateRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll interval", func(c *Config) { c.Engine.PollInterval = 0 }},
		{"zero follow-up delay", func(c *Config) { c.Engine.FollowUpDelay = 0 }},
		{"zero chain length", func(c *Config) { c.Engine.MaxChainLength = 0 }},
		{"zero sibling depth", func(c *Config) { c.Engine.SiblingWalkDepth = 0 }},
		{"zero lookback", func(c *Config) { c.Engine.MessageLookback = 0 }},
		{"zero manual baseline", func(c *Config) { c.ROI.ManualWorkflowMs = 0 }},
		{"negative automated baseline", func(c *Config) { c.ROI.AutomatedWorkflowMs = -1 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"unknown variant override", func(c *Config) { c.Detector.Override = "zed" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnabledTypesMergesOverDefaults(t *testing.T) {
	a := ActionsConfig{Enabled: map[string]bool{
		"accept-all": false,
		"custom":     true,
	}}
	got := a.EnabledTypes()
	assert.False(t, got[schemas.ActionAcceptAll])
	assert.True(t, got[schemas.ActionType("custom")])
	for _, typ := range schemas.RankedActionTypes {
		if typ == schemas.ActionAcceptAll {
			continue
		}
		assert.True(t, got[typ], "type %s should default to enabled", typ)
	}
}
