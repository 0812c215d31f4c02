// internal/words/words.go
//
// Dictionary loading and seeding.
//
// Responsibilities:
//   - Load the answer and allowed-guess lists from files or the embedded assets.
//   - Normalize entries (trimmed, lowercase, exactly 5 letters a–z).
//   - Seed the store: allowed words with correct=false, answers with correct=true.
//
// Source selection (Load):
//   1. answersPath and allowedPath both set: read each file.
//   2. only allowedPath set: that file serves as both lists.
//   3. only answersPath set: answers from the file, allowed from the embedded list.
//   4. neither set: embedded assets.
//
// The embedded assets are a small starter dictionary for local runs.
// Deployments are expected to point WORDS_ANSWERS_FILE and WORDS_ALLOWED_FILE
// at full lists; Lists.Builtin records when the embedded data was used.
//
// Seeding is an upsert, so it can run on every start. A word that is
// already target-eligible is never demoted.

package words

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/notwordle/assets"
	"github.com/robalobadob/notwordle/internal/store"
)

// ErrEmptyAnswers is returned when no usable target word was loaded.
var ErrEmptyAnswers = errors.New("words: answers list is empty")

// Lists holds the normalized dictionary.
type Lists struct {
	Answers []string // target-eligible
	Allowed []string // accepted guesses; may overlap Answers
	Builtin bool     // at least one list came from the embedded assets
}

// Normalize trims and lowercases w.
func Normalize(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// Load reads both lists according to the rules in the file header.
func Load(answersPath, allowedPath string) (*Lists, error) {
	var (
		ans, allow []string
		builtin    bool
		err        error
	)

	switch {
	case answersPath != "" && allowedPath != "":
		if ans, err = readWordFile(answersPath); err != nil {
			return nil, err
		}
		if allow, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
	case allowedPath != "":
		if allow, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
		ans = allow
	case answersPath != "":
		if ans, err = readWordFile(answersPath); err != nil {
			return nil, err
		}
		if allow, err = assets.AllowedList(); err != nil {
			return nil, err
		}
		builtin = true
	default:
		if ans, err = assets.AnswersList(); err != nil {
			return nil, err
		}
		if allow, err = assets.AllowedList(); err != nil {
			return nil, err
		}
		builtin = true
	}

	l := &Lists{Answers: filterWords(ans), Allowed: filterWords(allow), Builtin: builtin}
	if len(l.Answers) == 0 {
		return nil, ErrEmptyAnswers
	}
	return l, nil
}

// Entries flattens the lists into store rows, deduplicated, answers winning.
func (l *Lists) Entries() []store.Word {
	seen := make(map[string]int, len(l.Answers)+len(l.Allowed))
	out := make([]store.Word, 0, len(l.Answers)+len(l.Allowed))
	add := func(w string, correct bool) {
		if i, ok := seen[w]; ok {
			out[i].Correct = out[i].Correct || correct
			return
		}
		seen[w] = len(out)
		out = append(out, store.Word{Text: w, Correct: correct})
	}
	for _, w := range l.Allowed {
		add(w, false)
	}
	for _, w := range l.Answers {
		add(w, true)
	}
	return out
}

// Seed upserts the lists into st.
func Seed(ctx context.Context, st store.Store, l *Lists) error {
	if err := st.SeedWords(ctx, l.Entries()); err != nil {
		return fmt.Errorf("seed words: %w", err)
	}
	total, correct, err := st.CountWords(ctx)
	if err != nil {
		return fmt.Errorf("count words: %w", err)
	}
	log.Info().Int("words", total).Int("targets", correct).Msg("dictionary seeded")
	if l.Builtin {
		log.Warn().
			Int("answers", len(l.Answers)).
			Int("allowed", len(l.Allowed)).
			Msg("using built-in starter word lists; set WORDS_ANSWERS_FILE and WORDS_ALLOWED_FILE for a full dictionary")
	}
	return nil
}

// readWordFile loads one word per line from path.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	list, err := assets.ReadList(f)
	if err != nil {
		return nil, fmt.Errorf("read word list %s: %w", path, err)
	}
	return list, nil
}

// filterWords normalizes and keeps valid 5-letter alphabetic words.
func filterWords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, w := range in {
		w = Normalize(w)
		if len(w) == 5 && isAlpha(w) {
			out = append(out, w)
		}
	}
	return out
}

// isAlpha reports whether s is all lowercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
