package moderation

import (
	"chat-relay/errors"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll_Embedded(t *testing.T) {
	req := require.New(t)

	data, err := NewCensoredLoader(Dictionaries).LoadAll("censored")

	req.NoError(err)
	req.Equal([]string{"de", "en", "es", "fr"}, data.Languages())
	req.Contains(data.ByLanguage["fr"], "merde")
	req.Contains(data.Words, "shit")
	// "idiot" lives in two dictionaries but appears once in the union
	count := 0
	for _, w := range data.Words {
		if w == "idiot" {
			count++
		}
	}
	req.Equal(1, count)
}

func TestCensoredLoader_LoadAll_Skips_Comments_And_Blank_Lines(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"words/en.txt":    {Data: []byte("# comment\r\n\r\nbadger\r\nsnake\n")},
		"words/README.md": {Data: []byte("not a dictionary")},
	}

	data, err := NewCensoredLoader(fsys).LoadAll("words")

	req.NoError(err)
	req.Equal([]string{"badger", "snake"}, data.Words)
	req.Equal([]string{"en"}, data.Languages())
}

func TestCensoredLoader_LoadAll_Empty(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{"words/en.txt": {Data: []byte("# nothing\n")}}

	_, err := NewCensoredLoader(fsys).LoadAll("words")

	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestPolicy_Moderate(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	data := &CensoredData{
		Words: []string{"merde", "badger"},
		ByLanguage: map[string][]string{
			"fr": {"merde"},
		},
	}
	policy, err := NewPolicy(data, replacementChar, log)
	req.NoError(err)

	// Clean text is left untouched
	req.Equal("See you tomorrow at the station", policy.Moderate("See you tomorrow at the station"))

	// French is censored with the French dictionary
	french := "Je pense vraiment que cette merde de voiture ne va jamais démarrer ce matin avant le travail"
	req.Contains(policy.Moderate(french), "cette ***** de voiture")

	// English has no dictionary of its own: the union applies
	english := "I really think that the badger living behind the old house is much bigger than the one we saw last summer"
	req.Contains(policy.Moderate(english), "the ****** living")

	req.Equal("", policy.Moderate(""))
}

func TestPolicy_Moderate_Keeps_Long_Texts_Whole(t *testing.T) {
	req := require.New(t)
	data := &CensoredData{Words: []string{"badger"}, ByLanguage: map[string][]string{}}
	policy, err := NewPolicy(data, replacementChar, logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	req.Equal("héllo world", policy.Moderate("héllo world"))
}
