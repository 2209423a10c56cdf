package challenge

import "time"

// Challenge is one issued captcha as handed back to the requester. The
// solution is never part of it.
type Challenge struct {
	ID        string    `json:"id"`        // Timestamp plus random suffix, see NewID
	Image     []byte    `json:"-"`         // Rendered PNG
	CreatedAt time.Time `json:"createdAt"` // When the challenge was issued
}
