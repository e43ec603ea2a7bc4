package serverlog

import "strings"

// LastCompleteLine selects the one line of a freshly read chunk that gets dispatched.
//
//   - chunk ends with a newline: its last line
//   - otherwise the trailing segment is still being written; take the line before it
//   - a lone partial line yields nothing
//
// Other lines of the chunk are not returned. A burst of lines written between two
// notifications therefore produces a single dispatch.
func LastCompleteLine(chunk string) (string, bool) {
	if chunk == "" {
		return "", false
	}

	end := len(chunk) - 1
	if chunk[end] != '\n' {
		end = strings.LastIndexByte(chunk, '\n')
		if end < 0 {
			return "", false
		}
	}

	start := strings.LastIndexByte(chunk[:end], '\n') + 1
	return strings.TrimSuffix(chunk[start:end], "\r"), true
}
