package challenge

import (
	"fmt"
	"regexp"
	"time"

	"github.com/glyphgate/glyphgate"
	"github.com/google/uuid"
)

var idPattern = regexp.MustCompile(`^(\d{8}-\d{4})-[0-9a-f]{8}$`)

// NewID builds a challenge ID from the UTC creation minute and the first
// eight hex digits of a random UUID, e.g. 20240101-1200-abcd1234. The suffix
// makes IDs hard to guess in practice but is not a security boundary; the
// store's collision check is what keeps IDs unique.
func NewID(t time.Time) string {
	return t.UTC().Format(glyphgate.IDTimeLayout) + "-" + uuid.NewString()[:8]
}

// ValidID reports whether id looks like something NewID produced.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ParseIDTime recovers the creation minute embedded in an ID.
func ParseIDTime(id string) (time.Time, error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}

	t, err := time.Parse(glyphgate.IDTimeLayout, m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrMalformedID, id, err)
	}

	return t, nil
}
