package internal

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// FastHash is a high-performance non-cryptographic hash function, used to
// derive ETags for rendered captcha images.
func FastHash(data []byte) string {
	h := xxhash.Sum64(data)
	return strconv.FormatUint(h, 16)
}
