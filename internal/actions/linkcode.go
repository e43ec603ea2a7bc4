package actions

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Readable alphabet without O, 0, I and 1. 32 symbols, so byte%32 is unbiased.
const linkCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	linkCodeLength = 9
	linkCodeChunk  = 3
)

// GenerateLinkCode returns a random code formatted as "ABC-DEF-GHJ"
func GenerateLinkCode() (string, error) {
	buf := make([]byte, linkCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var sb strings.Builder
	sb.Grow(linkCodeLength + linkCodeLength/linkCodeChunk - 1)
	for i, b := range buf {
		if i > 0 && i%linkCodeChunk == 0 {
			sb.WriteByte('-')
		}
		sb.WriteByte(linkCodeCharset[int(b)%len(linkCodeCharset)])
	}
	return sb.String(), nil
}
