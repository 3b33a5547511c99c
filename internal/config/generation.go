package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ModelSettings selects a generation model and the input preset used to call it.
type ModelSettings struct {
	Identifier string `mapstructure:"identifier"`
	Preset     string `mapstructure:"preset"`
}

// GenerationSettings is operator-editable and reloaded without a restart.
type GenerationSettings struct {
	ImageModel             ModelSettings     `mapstructure:"imageModel"`
	InterpretationModel    ModelSettings     `mapstructure:"interpretationModel"`
	DefaultLanguage        string            `mapstructure:"defaultLanguage"`
	Languages              map[string]string `mapstructure:"languages"`
	FallbackInterpretation string            `mapstructure:"fallbackInterpretation"`
}

func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		ImageModel: ModelSettings{
			Identifier: "google/imagen-4",
			Preset:     "imagen",
		},
		InterpretationModel: ModelSettings{
			Identifier: "google/gemini-2.5-flash",
			Preset:     "llm",
		},
		DefaultLanguage: "tr",
		Languages: map[string]string{
			"tr": "Turkish",
			"en": "English",
			"es": "Spanish",
			"de": "German",
		},
		FallbackInterpretation: "The stars are silent right now.",
	}
}

type GenerationSettingsHolder struct {
	current atomic.Value // holds GenerationSettings
}

// NewStaticGenerationSettings returns a holder that never reloads.
func NewStaticGenerationSettings(settings GenerationSettings) *GenerationSettingsHolder {
	holder := &GenerationSettingsHolder{}
	holder.current.Store(settings)
	return holder
}

func NewGenerationSettingsHolder(cfg Config, log *zap.Logger) (*GenerationSettingsHolder, error) {
	log = log.Named("config.generation")
	v := viper.New()

	name := strings.TrimSpace(cfg.Generation.SettingsFile)
	if name == "" {
		name = "generation"
	}
	v.SetConfigName(name)
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/dreamforge")
	v.AddConfigPath(".")

	defaults := DefaultGenerationSettings()
	v.SetDefault("generation.imageModel.identifier", defaults.ImageModel.Identifier)
	v.SetDefault("generation.imageModel.preset", defaults.ImageModel.Preset)
	v.SetDefault("generation.interpretationModel.identifier", defaults.InterpretationModel.Identifier)
	v.SetDefault("generation.interpretationModel.preset", defaults.InterpretationModel.Preset)
	v.SetDefault("generation.defaultLanguage", defaults.DefaultLanguage)
	v.SetDefault("generation.languages", defaults.Languages)
	v.SetDefault("generation.fallbackInterpretation", defaults.FallbackInterpretation)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	var settings GenerationSettings
	if err := v.UnmarshalKey("generation", &settings); err != nil {
		return nil, err
	}
	if err := validateGenerationSettings(settings); err != nil {
		return nil, err
	}

	holder := NewStaticGenerationSettings(settings)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated GenerationSettings
		if err := v.UnmarshalKey("generation", &updated); err != nil {
			log.Warn("generation settings reload failed", zap.Error(err))
			return
		}
		if err := validateGenerationSettings(updated); err != nil {
			log.Warn("invalid generation settings ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("generation settings reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *GenerationSettingsHolder) Get() GenerationSettings {
	return h.current.Load().(GenerationSettings)
}

func validateGenerationSettings(cfg GenerationSettings) error {
	if strings.TrimSpace(cfg.ImageModel.Identifier) == "" {
		return errors.New("generation.imageModel.identifier cannot be empty")
	}
	if strings.TrimSpace(cfg.InterpretationModel.Identifier) == "" {
		return errors.New("generation.interpretationModel.identifier cannot be empty")
	}
	if len(cfg.Languages) == 0 {
		return errors.New("generation.languages cannot be empty")
	}
	if _, ok := cfg.Languages[cfg.DefaultLanguage]; !ok {
		return errors.New("generation.defaultLanguage must be one of generation.languages")
	}
	if strings.TrimSpace(cfg.FallbackInterpretation) == "" {
		return errors.New("generation.fallbackInterpretation cannot be empty")
	}
	return nil
}
