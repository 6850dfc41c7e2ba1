package qacache

import (
	"crypto/md5"
	"encoding/hex"
)

// EntryID derives the deterministic document id for a question within a use
// case. Repeating the same pair always addresses the same entry, so a second
// store overwrites rather than duplicates.
func EntryID(question, usecase string) string {
	sum := md5.Sum([]byte(question + "_" + usecase))
	return hex.EncodeToString(sum[:])
}
