package moderation

import (
	"log/slog"

	"github.com/abadojack/whatlanggo"
)

// Policy masks forbidden words in message texts. The dictionary of the
// detected language is tried first; when detection is unreliable or the
// language has no dictionary, the union of all dictionaries applies.
type Policy struct {
	log        *slog.Logger
	byLanguage map[string]*Moderator
	fallback   *Moderator
}

func NewPolicy(data *CensoredData, replacement rune, log *slog.Logger) (*Policy, error) {
	fallback, err := NewModerator(data.Words, replacement, log)
	if err != nil {
		return nil, err
	}

	byLanguage := make(map[string]*Moderator, len(data.ByLanguage))
	for lang, words := range data.ByLanguage {
		moderator, err := NewModerator(words, replacement, log)
		if err != nil {
			log.Warn("Skipping empty dictionary", "lang", lang, "error", err)
			continue
		}
		byLanguage[lang] = moderator
	}

	return &Policy{
		log:        log,
		byLanguage: byLanguage,
		fallback:   fallback,
	}, nil
}

// Moderate returns the text to persist.
func (p *Policy) Moderate(text string) string {
	if text == "" {
		return text
	}
	moderator, lang := p.pick(text)
	censored, words := moderator.Censor(text)
	if len(words) > 0 {
		p.log.Debug("Message censored", "lang", lang, "words", words)
	}
	return censored
}

func (p *Policy) pick(text string) (*Moderator, string) {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return p.fallback, "unknown"
	}
	lang := info.Lang.Iso6391()
	if moderator, ok := p.byLanguage[lang]; ok {
		return moderator, lang
	}
	return p.fallback, lang
}
