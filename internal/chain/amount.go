package chain

import (
	"math/big"
	"strings"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// CCDDecimals is the number of decimal places in one CCD.
const CCDDecimals = 6

// ParseDecimalAmount parses a non-negative decimal string into an integer
// scaled by decimals. Extra fractional digits are truncated.
func ParseDecimalAmount(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{"amount": amount})
	}

	intPart, fracPart, hasDot := strings.Cut(amount, ".")
	if hasDot && strings.Contains(fracPart, ".") {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{"amount": amount})
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{"amount": amount})
	}

	if len(fracPart) < decimals {
		fracPart += strings.Repeat("0", decimals-len(fracPart))
	}
	fracPart = fracPart[:decimals]

	result, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{"amount": amount})
	}
	return result, nil
}

// FormatDecimalAmount renders amount with decimals places, dropping
// trailing fractional zeros and the point itself when nothing remains.
func FormatDecimalAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	neg := amount.Sign() < 0
	str := new(big.Int).Abs(amount).String()
	if decimals > 0 {
		if len(str) <= decimals {
			str = strings.Repeat("0", decimals-len(str)+1) + str
		}
		point := len(str) - decimals
		frac := strings.TrimRight(str[point:], "0")
		str = str[:point]
		if frac != "" {
			str += "." + frac
		}
	}
	if neg {
		return "-" + str
	}
	return str
}

// FormatCCD renders a microCCD amount with between two and six decimals.
func FormatCCD(micro uint64) string {
	s := FormatDecimalAmount(new(big.Int).SetUint64(micro), CCDDecimals)
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) < 2 {
		frac += strings.Repeat("0", 2-len(frac))
	}
	return whole + "." + frac
}

// ParseCCD parses a CCD amount into microCCD.
func ParseCCD(s string) (uint64, error) {
	v, err := ParseDecimalAmount(s, CCDDecimals)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{"amount": s, "reason": "too large"})
	}
	return v.Uint64(), nil
}

// FormatTokenAmount renders a raw integer token amount using the
// token's decimals. Unparseable input is returned unchanged.
func FormatTokenAmount(raw string, decimals int) string {
	if decimals <= 0 {
		return raw
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return raw
	}
	return FormatDecimalAmount(v, decimals)
}

// ParseTokenAmount converts a display amount into the raw integer string.
func ParseTokenAmount(s string, decimals int) (string, error) {
	v, err := ParseDecimalAmount(s, max(decimals, 0))
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
