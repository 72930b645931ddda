/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wordhunt

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	ErrNotLetters = errors.New("word may only contain letters")
	ErrLength     = errors.New("word length out of range")
)

var lower = cases.Lower(language.Und)

// Fold maps a raw string onto the form words are compared in: NFKC,
// narrow width, lower case.
func Fold(raw string) string {
	s := norm.NFKC.String(strings.TrimSpace(raw))
	s = width.Fold.String(s)

	return lower.String(s)
}

// NormalizeWord folds raw and checks it is a valid secret word.
func NormalizeWord(raw string, minLen, maxLen int) (string, error) {
	w := Fold(raw)

	for _, r := range w {
		if !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w: %q", ErrNotLetters, r)
		}
	}

	n := utf8.RuneCountInString(w)
	if n < minLen || (maxLen > 0 && n > maxLen) {
		return "", fmt.Errorf("%w: %d not in %d..%d", ErrLength, n, minLen, maxLen)
	}

	return w, nil
}

// NormalizeChar folds raw and checks it is exactly one letter.
func NormalizeChar(raw string) (string, error) {
	c := Fold(raw)
	if utf8.RuneCountInString(c) != 1 {
		return "", fmt.Errorf("%w: want a single character, got %q", ErrLength, raw)
	}
	r, _ := utf8.DecodeRuneInString(c)
	if !unicode.IsLetter(r) {
		return "", fmt.Errorf("%w: %q", ErrNotLetters, r)
	}

	return c, nil
}

// positions returns the rune offsets of c inside w.
func positions(w, c string) []int {
	target, _ := utf8.DecodeRuneInString(c)

	var out []int
	i := 0
	for _, r := range w {
		if r == target {
			out = append(out, i)
		}
		i++
	}

	return out
}

// mask renders w with unrevealed runes replaced by Hidden.
func mask(w string, revealed []bool) string {
	var b strings.Builder
	i := 0
	for _, r := range w {
		if i < len(revealed) && revealed[i] {
			b.WriteRune(r)
		} else {
			b.WriteString(Hidden)
		}
		i++
	}

	return b.String()
}

const Hidden = "_"
