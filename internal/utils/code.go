package utils

import "crypto/rand"

// codeAlphabet deliberately omits 0/O and 1/I so codes stay readable
// when a student shows one on a phone screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewVerificationCode returns an 8-character code for an activated
// pass.  Codes are generated from crypto/rand; the passes table keeps
// a uniqueness constraint on the column so a collision surfaces as an
// insert error rather than a reused code.
func NewVerificationCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
