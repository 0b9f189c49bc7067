// Package lockandkey computes the keyed-hash challenge proof demanded by
// the messaging host before it will issue a registration token. The server
// recomputes the proof independently, so the algorithm must match it
// bit for bit.
package lockandkey

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shillcollin/skymsg/core"
)

// Fixed application identity presented with every challenge response.
const (
	AppID = "msmsgs@msnmsgr.com"
	Key   = "Q1P7W2E4J9R8U3S5"
)

const (
	modulus    = 2147483647 // 2^31 - 1
	multiplier = 242854337
)

// Compute derives the 32-hex-character proof for a server-issued challenge.
//
// The challenge text concatenated with the app id is right-padded with
// ASCII '0' to an 8-byte multiple and read as little-endian 32-bit words.
// The SHA-256 digest of challenge+key, read the same way, seeds a pair of
// linear-congruential accumulators over the word sequence; the two 31-bit
// outputs are XORed back against the digest words and rendered in the
// protocol's nibble-swapped little-endian hex encoding.
func Compute(challenge, appID, key string) (string, error) {
	clear := challenge + appID
	if rem := len(clear) % 8; rem != 0 {
		clear += strings.Repeat("0", 8-rem)
	}
	words := make([]uint64, len(clear)/4)
	for i := range words {
		var w uint64
		for pos := 0; pos < 4; pos++ {
			w |= uint64(clear[i*4+pos]) << (8 * pos)
		}
		words[i] = w
	}

	// The protocol parses the uppercase hex digest two characters at a
	// time, low byte first within each 4-byte group; that is exactly the
	// little-endian reading of the raw digest bytes.
	digest := sha256.Sum256([]byte(challenge + key))
	var seed [4]uint64
	for i := range seed {
		seed[i] = uint64(binary.LittleEndian.Uint32(digest[i*4:]))
	}

	mac, sum, err := checksum64(words, seed)
	if err != nil {
		return "", err
	}

	parts := [4]uint64{mac, sum, mac, sum}
	var out strings.Builder
	out.Grow(32)
	for i := range seed {
		out.WriteString(renderWord(seed[i] ^ parts[i]))
	}
	return out.String(), nil
}

// Header builds the complete LockAndKey header value for the given time,
// using the fixed app identity.
func Header(now time.Time) (string, error) {
	secs := strconv.FormatInt(now.Unix(), 10)
	proof, err := Compute(secs, AppID, Key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("appId=%s; time=%s; lockAndKeyResponse=%s", AppID, secs, proof), nil
}

// checksum64 runs the two interleaved accumulators over the word sequence.
// The input must hold an even number of words, at least two.
func checksum64(words []uint64, seed [4]uint64) (uint64, uint64, error) {
	if len(words) < 2 || len(words)%2 == 1 {
		return 0, 0, core.NewMalformedInput("challenge checksum requires an even word count of at least two")
	}
	a := seed[0] & modulus
	b := seed[1] & modulus
	c := seed[2] & modulus
	d := seed[3] & modulus
	var mac, sum uint64
	for i := 0; i < len(words); i += 2 {
		datum := words[i] * multiplier % modulus
		mac = ((mac+datum)*a + b) % modulus
		sum = (sum + mac) % modulus
		mac = ((mac+words[i+1])*c + d) % modulus
		sum = (sum + mac) % modulus
	}
	mac = (mac + b) % modulus
	sum = (sum + d) % modulus
	return mac, sum, nil
}

// renderWord encodes a 32-bit value with the hex digits of each byte
// swapped: digits 2i,2i+1 come from bits i*8+4..i*8+11. This is not
// standard hex formatting.
func renderWord(n uint64) string {
	const hexChars = "0123456789abcdef"
	var b [8]byte
	for i := uint(0); i < 4; i++ {
		b[2*i] = hexChars[(n>>(i*8+4))&15]
		b[2*i+1] = hexChars[(n>>(i*8))&15]
	}
	return string(b[:])
}
