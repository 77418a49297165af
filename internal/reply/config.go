// Package reply generates comment replies with Gemini and manages the
// user's reply templates.
package reply

import (
	"fmt"
	"strings"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
)

type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
)

type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

type Language string

const (
	LanguageEnglish Language = "english"
	LanguageSpanish Language = "spanish"
	LanguageFrench  Language = "french"
)

// Config is the per-request generation setting. It is never persisted.
type Config struct {
	Tone     Tone     `json:"tone"`
	Length   Length   `json:"length"`
	Language Language `json:"language"`
	Template string   `json:"template,omitempty"`
}

// DefaultConfig is friendly, medium-length English without a template.
func DefaultConfig() Config {
	return Config{Tone: ToneFriendly, Length: LengthMedium, Language: LanguageEnglish}
}

// ParseConfig builds a Config from raw request values. Empty values take the
// defaults; unknown values are rejected.
func ParseConfig(tone, length, language string) (Config, error) {
	cfg := DefaultConfig()
	if tone = strings.ToLower(strings.TrimSpace(tone)); tone != "" {
		switch t := Tone(tone); t {
		case ToneFriendly, ToneProfessional, ToneCasual:
			cfg.Tone = t
		default:
			return Config{}, fmt.Errorf("tone %q: %w", tone, model.ErrInvalidInput)
		}
	}
	if length = strings.ToLower(strings.TrimSpace(length)); length != "" {
		switch l := Length(length); l {
		case LengthShort, LengthMedium, LengthLong:
			cfg.Length = l
		default:
			return Config{}, fmt.Errorf("length %q: %w", length, model.ErrInvalidInput)
		}
	}
	if language = strings.ToLower(strings.TrimSpace(language)); language != "" {
		switch l := Language(language); l {
		case LanguageEnglish, LanguageSpanish, LanguageFrench:
			cfg.Language = l
		default:
			return Config{}, fmt.Errorf("language %q: %w", language, model.ErrInvalidInput)
		}
	}
	return cfg, nil
}
