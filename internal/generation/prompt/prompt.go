// Package prompt builds model prompts and provider inputs for a generation.
package prompt

import (
	"fmt"
	"strings"
)

const (
	PresetImagen = "imagen"
	PresetFlux   = "flux"
	PresetLLM    = "llm"
)

// Image conditions the painting on the artist's style and the dream text.
func Image(artistName, styleDescription, dreamText string) string {
	return fmt.Sprintf(
		"Create a masterpiece painting of the following scene in the style of %s. Style description: %s. "+
			"The scene is based on this dream: %q. Make it atmospheric, artistic, and evocative.",
		artistName,
		styleDescription,
		strings.TrimSpace(dreamText),
	)
}

// Interpretation asks for a reading of the dream in the given language.
func Interpretation(dreamText, languageName string) string {
	return fmt.Sprintf(
		"Act as a dream interpretation expert and a mystical sage. Interpret the following dream for the user. "+
			"Tone: Gentle, mysterious, and insightful. Dream: %q. "+
			"IMPORTANT: Provide the response in %s language. Keep the response under 3 short paragraphs.",
		strings.TrimSpace(dreamText),
		languageName,
	)
}

// ImageInput shapes the provider input for an image model preset.
func ImageInput(preset, prompt string) map[string]any {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case PresetImagen:
		return map[string]any{
			"prompt":              prompt,
			"aspect_ratio":        "1:1",
			"safety_filter_level": "block_only_high",
			"output_format":       "png",
		}
	case PresetFlux:
		return map[string]any{
			"prompt":       prompt,
			"aspect_ratio": "1:1",
		}
	default:
		return map[string]any{"prompt": prompt}
	}
}

func InterpretationInput(preset, prompt string) map[string]any {
	return map[string]any{"prompt": prompt}
}
