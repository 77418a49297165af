package reply

import (
	"fmt"
	"strings"
)

const (
	temperature   = 0.7
	defaultTokens = 150
)

// MaxTokens maps a reply length to the output token ceiling.
func MaxTokens(l Length) int {
	switch l {
	case LengthShort:
		return 50
	case LengthMedium:
		return 150
	case LengthLong:
		return 300
	default:
		return defaultTokens
	}
}

// BuildPrompt embeds the comment and the generation settings into one instruction.
func BuildPrompt(commentText string, cfg Config) string {
	length := cfg.Length
	if length == "" {
		length = LengthMedium
	}
	prompt := fmt.Sprintf(
		"As a helpful YouTube channel manager, generate a %s reply in %s to this comment: \"%s\". The reply should be %s in length and maintain a %s tone throughout.",
		cfg.Tone, cfg.Language, commentText, length, cfg.Tone,
	)
	if t := strings.TrimSpace(cfg.Template); t != "" {
		prompt += " Use this template as a guide: " + t
	}
	return prompt
}

// Placeholder marks where the generated reply goes inside a template.
const Placeholder = "[REPLY]"

// ApplyTemplate substitutes reply for the first placeholder in template.
// An empty template yields the reply; a template without a placeholder is
// returned unchanged.
func ApplyTemplate(template, reply string) string {
	if template == "" {
		return reply
	}
	return strings.Replace(template, Placeholder, reply, 1)
}
