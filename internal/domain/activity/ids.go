package activity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const idHashLen = 24

// EventID derives the stable ID of an external event from its owning
// project's identity key, its type and the source-native identifier (commit
// SHA or deployment UID).
func EventID(projectKey string, typ Type, nativeID string) string {
	sum := sha256.Sum256([]byte(projectKey + "\x00" + string(typ) + "\x00" + nativeID))
	return string(typ) + "_" + hex.EncodeToString(sum[:])[:idHashLen]
}

// FirstLine returns the first line of a commit message.
func FirstLine(msg string) string {
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}
