package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/ccdwallet/internal/secretstore"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// minPasswordLength is the shortest accepted new password.
const minPasswordLength = 8

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // swapped by tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptConfirmFn     = promptConfirm
	promptMnemonicFn    = promptMnemonic
)

// out is a helper for CLI output that ignores write errors.
//
//nolint:errcheck // CLI output writes are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

func zeroBytes(b []byte) {
	secretstore.Zero(b)
}

// promptPassword reads a password with hidden input.
// The caller zeroes the returned bytes.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // Fd fits in int
	outln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassword reads a new password twice.
// The caller zeroes the returned bytes.
func promptNewPassword(prompt string) ([]byte, error) {
	password, err := promptPasswordFn(prompt)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		zeroBytes(password)
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		zeroBytes(password)
		return nil, err
	}
	defer zeroBytes(confirm)

	if string(password) != string(confirm) {
		zeroBytes(password)
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}

// promptConfirm asks a yes/no question on stderr. Anything but y/yes is no.
func promptConfirm(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// promptMnemonic reads a seed phrase on one line and rejects it with
// per-word suggestions when it does not validate.
func promptMnemonic() (string, error) {
	outln(os.Stderr, "Enter your seed phrase (all words on one line):")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", walleterr.WithSuggestion(walleterr.ErrInvalidInput, "no seed phrase provided")
	}
	return checkMnemonic(line)
}

// checkMnemonic normalizes phrase and validates it. Misspelled words are
// reported with the closest wordlist entries.
func checkMnemonic(phrase string) (string, error) {
	phrase = wallet.NormalizeMnemonicInput(phrase)
	if err := wallet.ValidateMnemonic(phrase); err != nil {
		if typos := wallet.DetectTypos(phrase); len(typos) > 0 {
			return "", walleterr.WithSuggestion(walleterr.ErrInvalidSeed, wallet.FormatTypoSuggestions(typos))
		}
		return "", err
	}
	return phrase, nil
}
