package sequence

import (
	"fmt"
	"strconv"
)

// FormatNumber renders a human-readable sequence number, e.g.
// ("INV", 9, 42) -> "INV000000042". n must be positive.
func FormatNumber(prefix string, pad int, n int64) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid sequence number: %d", n)
	}
	if pad <= 0 {
		return prefix + strconv.FormatInt(n, 10), nil
	}
	return fmt.Sprintf("%s%0*d", prefix, pad, n), nil
}
