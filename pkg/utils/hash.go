package utils

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a short stable hash of the given parts.
// Parts are joined with a separator that cannot appear in query parameters.
func Fingerprint(parts ...string) string {
	sum := xxhash.Sum64String(strings.Join(parts, "\x1f"))
	return strconv.FormatUint(sum, 36)
}
