// Package reward computes rarity tiers and karma values for delivered
// rewards, and derives the deterministic per-request seeds.
package reward

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Seed derives the 32-bit seed for a (user, date) pair: the first 8
// hex characters of md5("{user_id}_{date}"), read as an unsigned
// integer. Tie-breaks and rarity draws depend on it, so the
// derivation must never change.
func Seed(userID, date string) uint32 {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s", userID, date)))
	return binary.BigEndian.Uint32(sum[:4])
}
