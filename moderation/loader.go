package moderation

import (
	"bufio"
	"bytes"
	"chat-relay/errors"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Dictionaries holds one word list per language, named after its ISO 639-1 code.
//
//go:embed censored/*.txt
var Dictionaries embed.FS

// CensoredData carries the result of the loading process including metadata for logging.
type CensoredData struct {
	Words      []string            // union of every dictionary
	ByLanguage map[string][]string // iso 639-1 code -> words
}

func (d CensoredData) Languages() []string {
	languages := lo.Keys(d.ByLanguage)
	sort.Strings(languages)
	return languages
}

// CensoredLoader reads blacklisted words from an embedded directory.
type CensoredLoader struct {
	fs fs.FS
}

func NewCensoredLoader(f fs.FS) *CensoredLoader {
	return &CensoredLoader{fs: f}
}

// LoadAll treats every .txt file under path as a language dictionary,
// e.g. "fr.txt" holds the French words.
func (l *CensoredLoader) LoadAll(path string) (*CensoredData, error) {
	entries, err := fs.ReadDir(l.fs, path)
	if err != nil {
		return nil, err
	}

	byLanguage := make(map[string][]string)
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".txt")

		data, err := fs.ReadFile(l.fs, path+"/"+entry.Name())
		if err != nil {
			return nil, err
		}

		// Scanner handles \n as well as \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			byLanguage[lang] = append(byLanguage[lang], line)
			uniqueWords[line] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := lo.Keys(uniqueWords)
	sort.Strings(words)
	return &CensoredData{Words: words, ByLanguage: byLanguage}, nil
}
