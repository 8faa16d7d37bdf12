// Package identity derives the opaque meeting-room and proof-token identifiers
// attached to a booked session.
//
// An identifier is 24 lowercase hex characters: 12 from two independent hashes
// of the slot seed (xxHash64 and BLAKE3, 24 bits each) followed by 12 from a
// process-wide, strictly increasing microsecond sequence. The hash half is a
// pure function of the seed; the sequence half makes repeated derivations for
// the same seed distinct.
package identity

import (
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Length is the fixed length of every derived identifier.
const Length = 24

const (
	roomTag  = "room"
	tokenTag = "token"

	hashChars = 12
	seqMask   = 1<<48 - 1
)

// SlotSeed is the quadruple an identifier is derived from. Empty fields are
// allowed and only lower the entropy of the hash half.
type SlotSeed struct {
	SlotID     string
	ProviderID string
	Date       string
	StartTime  string
}

// Identifiers is the pair minted for one booking.
type Identifiers struct {
	MeetingRoomID string
	ProofTokenID  string
}

var lastSeq atomic.Uint64

// Derive mints both identifiers for a seed.
func Derive(seed SlotSeed) Identifiers {
	return Identifiers{
		MeetingRoomID: MeetingRoomID(seed),
		ProofTokenID:  ProofTokenID(seed),
	}
}

// MeetingRoomID derives the meeting-room identifier.
func MeetingRoomID(seed SlotSeed) string {
	return derive(roomTag, seed)
}

// ProofTokenID derives the proof-token identifier.
func ProofTokenID(seed SlotSeed) string {
	return derive(tokenTag, seed)
}

// Fingerprint returns only the seed-dependent half. Two identifiers derived
// from the same seed and tag share it.
func Fingerprint(tag string, seed SlotSeed) string {
	return fingerprint(tag + "|" + seed.String())
}

// Valid reports whether id has the shape Derive produces.
func Valid(id string) bool {
	if len(id) != Length || strings.ToLower(id) != id {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

func (s SlotSeed) String() string {
	return strings.Join([]string{s.SlotID, s.ProviderID, s.Date, s.StartTime}, "|")
}

func derive(tag string, seed SlotSeed) string {
	var seq [8]byte
	putUint48(seq[:], nextSequence())
	return Fingerprint(tag, seed) + hex.EncodeToString(seq[2:])
}

func fingerprint(s string) string {
	var buf [6]byte

	h1 := xxhash.Sum64String(s)
	buf[0] = byte(h1 >> 56)
	buf[1] = byte(h1 >> 48)
	buf[2] = byte(h1 >> 40)

	h2 := blake3.Sum256([]byte(s))
	copy(buf[3:], h2[:3])

	return hex.EncodeToString(buf[:])[:hashChars]
}

// nextSequence returns the current time in microseconds, bumped so that it is
// strictly greater than every value handed out before in this process.
func nextSequence() uint64 {
	for {
		prev := lastSeq.Load()
		next := uint64(time.Now().UnixMicro()) & seqMask
		if next <= prev {
			next = prev + 1
		}
		if lastSeq.CompareAndSwap(prev, next) {
			return next & seqMask
		}
	}
}

func putUint48(b []byte, v uint64) {
	for i := 7; i >= 2; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
