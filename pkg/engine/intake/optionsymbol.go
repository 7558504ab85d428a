package intake

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Option symbols arrive as "UNDERLYING YYYYMMDD C|P STRIKE", e.g.
// "XLF 20261218 C 45.5". The venue wants the compact OSI-style code,
// e.g. "XLF261218C00045500".

// IsOptionSymbol reports whether the trading symbol is an option spec
// rather than a plain equity ticker.
func IsOptionSymbol(symbol string) bool {
	return len(strings.Fields(symbol)) == 4
}

// TranslateOptionSymbol derives the venue option code. A symbol that
// looks like an option but does not parse is a validation error.
func TranslateOptionSymbol(symbol string) (string, error) {
	parts := strings.Fields(symbol)
	if len(parts) != 4 {
		return "", fmt.Errorf("%w: %q", ErrBadOptionSymbol, symbol)
	}

	underlying := strings.ToUpper(parts[0])
	if underlying == "" || len(underlying) > 6 {
		return "", fmt.Errorf("%w: underlying %q", ErrBadOptionSymbol, parts[0])
	}

	expiry, err := time.Parse("20060102", parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: expiry %q", ErrBadOptionSymbol, parts[1])
	}

	right := strings.ToUpper(parts[2])
	if right != "C" && right != "P" {
		return "", fmt.Errorf("%w: right %q", ErrBadOptionSymbol, parts[2])
	}

	strike, err := strconv.ParseFloat(parts[3], 64)
	if err != nil || strike <= 0 {
		return "", fmt.Errorf("%w: strike %q", ErrBadOptionSymbol, parts[3])
	}

	// strike in thousandths of a dollar, zero padded to 8 digits
	return fmt.Sprintf("%s%s%s%08d", underlying, expiry.Format("060102"), right, int64(strike*1000+0.5)), nil
}
