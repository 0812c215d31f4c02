// assets/embed.go
//
// Built-in dictionary shipped inside the binary.
//   - answers.txt: target-eligible words (seeded with correct=1).
//   - allowed.txt: extra accepted guesses (seeded with correct=0).
//
// Blank lines and lines starting with '#' are skipped. Entries are returned
// trimmed and lowercased; length checks are left to the words package.
package assets

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"strings"
)

const (
	AnswersFile = "answers.txt"
	AllowedFile = "allowed.txt"
)

//go:embed allowed.txt answers.txt
var FS embed.FS

// ReadList parses a word list from r.
func ReadList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

func readEmbedded(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open embedded %s: %w", name, err)
	}
	defer f.Close()
	return ReadList(f)
}

// AnswersList returns the embedded target words.
func AnswersList() ([]string, error) {
	return readEmbedded(AnswersFile)
}

// AllowedList returns the embedded guess-only words.
func AllowedList() ([]string, error) {
	return readEmbedded(AllowedFile)
}
