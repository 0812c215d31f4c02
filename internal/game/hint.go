package game

import (
	"strconv"
	"strings"
)

// ComputeHint compares guess to target and renders the player-facing hint.
//
// Rendering:
//   - "<L> in <n>," for a letter in the right place,
//   - "<L> not in <n>," for a letter that is elsewhere in the target,
//   - then every absent letter once, followed by "not in word".
//
// When nothing is absent the trailing comma of the last token is dropped.
//
// Repeated letters are hinted once: after a letter has produced a token,
// later positions holding the same letter are skipped, even if they are
// exact matches. Players rely on the hint strings staying stable, so this
// is kept as is rather than switched to multiplicity-aware scoring.
func ComputeHint(guess, target string) HintResult {
	if !IsWordShaped(guess) || !IsWordShaped(target) {
		return HintResult{Outcome: OutcomeInvalid, Text: MsgInvalidGuess}
	}

	g, t := strings.ToUpper(guess), strings.ToUpper(target)
	if g == t {
		return HintResult{Outcome: OutcomeWin, Text: MsgWin}
	}

	inTarget := make(map[byte]bool, WordLength)
	for i := 0; i < WordLength; i++ {
		inTarget[t[i]] = true
	}

	letters := make([]LetterVerdict, WordLength)
	remaining := make(map[byte]bool, WordLength)
	var absent []byte
	for i := 0; i < WordLength; i++ {
		c := g[i]
		state := StateAbsent
		switch {
		case c == t[i]:
			state = StateCorrect
		case inTarget[c]:
			state = StatePresent
		}
		letters[i] = LetterVerdict{Letter: string(c), Position: i + 1, State: state}

		if state == StateAbsent {
			if !contains(absent, c) {
				absent = append(absent, c)
			}
			continue
		}
		remaining[c] = true
	}

	tokens := make([]string, 0, WordLength+2)
	for _, lv := range letters {
		c := lv.Letter[0]
		if lv.State == StateAbsent || !remaining[c] {
			continue
		}
		delete(remaining, c)
		pos := strconv.Itoa(lv.Position)
		if lv.State == StateCorrect {
			tokens = append(tokens, lv.Letter+" in "+pos+",")
		} else {
			tokens = append(tokens, lv.Letter+" not in "+pos+",")
		}
	}

	if len(absent) > 0 {
		for _, c := range absent {
			tokens = append(tokens, string(c))
		}
		tokens = append(tokens, "not in word")
	} else {
		last := len(tokens) - 1
		tokens[last] = strings.TrimSuffix(tokens[last], ",")
	}

	return HintResult{Outcome: OutcomeHint, Letters: letters, Text: strings.Join(tokens, " ")}
}

// IsWordShaped reports whether w is exactly WordLength ASCII letters.
// Anything else, including multi-byte runes, is never scored.
func IsWordShaped(w string) bool {
	if len(w) != WordLength {
		return false
	}
	for i := 0; i < len(w); i++ {
		c := w[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

func contains(bs []byte, c byte) bool {
	for _, b := range bs {
		if b == c {
			return true
		}
	}
	return false
}
