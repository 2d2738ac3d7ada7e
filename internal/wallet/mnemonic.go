// Package wallet validates seed phrases and derives Concordium account
// key pairs from them.
package wallet

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// DefaultWordCount is the phrase length offered on wallet creation.
const DefaultWordCount = 24

var (
	// ErrInvalidWordCount indicates an unsupported phrase length.
	ErrInvalidWordCount = walleterr.WithSuggestion(walleterr.ErrInvalidInput, "word count must be 12 or 24")

	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// GenerateMnemonic creates a new 12 or 24 word phrase.
func GenerateMnemonic(wordCount int) (string, error) {
	var bits int
	switch wordCount {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return "", ErrInvalidWordCount
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic checks word count, vocabulary and checksum.
func ValidateMnemonic(phrase string) error {
	normalized := NormalizeMnemonicInput(phrase)
	if n := len(strings.Fields(normalized)); n != 12 && n != 24 {
		return walleterr.WithDetails(walleterr.ErrInvalidSeed, map[string]string{"words": strconv.Itoa(n)})
	}
	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return walleterr.ErrInvalidSeed
	}
	return nil
}

// NormalizeMnemonicInput lowercases the phrase, strips list markers and
// commas, and collapses whitespace.
func NormalizeMnemonicInput(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// MnemonicToSeed validates the phrase and returns its 64-byte seed.
// Callers should zero the result when done.
func MnemonicToSeed(phrase, passphrase string) ([]byte, error) {
	if err := ValidateMnemonic(phrase); err != nil {
		return nil, err
	}
	return bip39.NewSeed(NormalizeMnemonicInput(phrase), passphrase), nil
}

// IsValidWord reports whether word is in the English word list.
func IsValidWord(word string) bool {
	_, ok := bip39.GetWordIndex(strings.ToLower(word))
	return ok
}

// MaxTypoDistance is the largest edit distance offered as a suggestion.
const MaxTypoDistance = 2

// TypoInfo describes one unknown word in a phrase.
type TypoInfo struct {
	Index      int    // zero-based position
	Word       string // word as typed
	Suggestion string // closest list word, empty if none is close
	Distance   int
}

// SuggestWord returns the closest list word within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	best, bestDist := "", math.MaxInt
	for _, w := range bip39.GetWordList() {
		d := levenshtein.ComputeDistance(input, w)
		if d == 0 {
			return w
		}
		if d < bestDist {
			best, bestDist = w, d
		}
	}
	if bestDist <= MaxTypoDistance {
		return best
	}
	return ""
}

// DetectTypos lists every word of phrase that is not in the word list.
func DetectTypos(phrase string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(NormalizeMnemonicInput(phrase)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line with 1-based positions.
func FormatTypoSuggestions(typos []TypoInfo) string {
	lines := make([]string, 0, len(typos))
	for _, t := range typos {
		line := "Word " + strconv.Itoa(t.Index+1) + ": '" + t.Word + "'"
		if t.Suggestion != "" {
			line += " - did you mean '" + t.Suggestion + "'?"
		} else {
			line += " is not a valid seed word"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
