package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadReadsNestedSections(t *testing.T) {
	t.Setenv("DATABASE_TYPE", " SQLite ")
	t.Setenv("WEBHOOK_LEMON_SQUEEZY_SECRET", "lemon")
	t.Setenv("GENERATION_TIMEOUT", "45s")
	t.Setenv("NOTIFY_OPERATOR_EMAILS", "ops@example.com,cfo@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "lemon", cfg.Webhooks.LemonSqueezySecret)
	assert.Empty(t, cfg.Webhooks.PaddleSecret)
	assert.Equal(t, 45*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, []string{"ops@example.com", "cfo@example.com"}, cfg.Notification.OperatorEmails)
	assert.Equal(t, "sqlite", cfg.Database().Type)
}

func TestGenerationSettingsDefaultsWithoutFile(t *testing.T) {
	cfg := Config{Generation: GenerationConfig{SettingsFile: "does-not-exist"}}

	holder, err := NewGenerationSettingsHolder(cfg, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, DefaultGenerationSettings().ImageModel, got.ImageModel)
	assert.Equal(t, "tr", got.DefaultLanguage)
	assert.Equal(t, "German", got.Languages["de"])
}

func TestGenerationSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`generation:
  imageModel:
    identifier: black-forest-labs/flux-schnell
    preset: flux
  defaultLanguage: en
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generation.yml"), content, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewGenerationSettingsHolder(Config{Generation: GenerationConfig{SettingsFile: "generation"}}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "black-forest-labs/flux-schnell", got.ImageModel.Identifier)
	assert.Equal(t, "flux", got.ImageModel.Preset)
	assert.Equal(t, "en", got.DefaultLanguage)
	assert.Equal(t, DefaultGenerationSettings().InterpretationModel.Identifier, got.InterpretationModel.Identifier)
}

func TestValidateGenerationSettingsRejectsUnknownDefaultLanguage(t *testing.T) {
	settings := DefaultGenerationSettings()
	settings.DefaultLanguage = "fr"

	assert.Error(t, validateGenerationSettings(settings))
}
