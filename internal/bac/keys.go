// Package bac derives Basic Access Control keys from the MRZ fields that
// protect a passport chip.
package bac

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/sha1" //nolint:gosec // SHA-1 is mandated by ICAO 9303 Part 11
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"mrzgate/internal/mrz"
)

// InformationLength is the length of the MRZ information string.
const InformationLength = 24

// KeyLength is the length of each derived key.
const KeyLength = 16

const documentNumberLength = 9

// ErrInvalidInformation is returned when the MRZ information string is not
// exactly InformationLength characters.
var ErrInvalidInformation = errors.New("invalid MRZ information length")

// KeyPair holds the parity-adjusted BAC encryption and MAC keys.
type KeyPair struct {
	Enc [KeyLength]byte
	Mac [KeyLength]byte
}

// EncHex returns Kenc in upper-case hex.
func (k KeyPair) EncHex() string { return strings.ToUpper(hex.EncodeToString(k.Enc[:])) }

// MacHex returns Kmac in upper-case hex.
func (k KeyPair) MacHex() string { return strings.ToUpper(hex.EncodeToString(k.Mac[:])) }

// EncryptionCipher returns a two-key triple-DES cipher keyed with Kenc.
func (k KeyPair) EncryptionCipher() (cipher.Block, error) { return tripleDES(k.Enc) }

// MACCipher returns a two-key triple-DES cipher keyed with Kmac.
func (k KeyPair) MACCipher() (cipher.Block, error) { return tripleDES(k.Mac) }

func tripleDES(key [KeyLength]byte) (cipher.Block, error) {
	k := make([]byte, 0, 24)
	k = append(k, key[:]...)
	k = append(k, key[:8]...)
	return des.NewTripleDESCipher(k)
}

// Information builds the 24-character MRZ information string. The document
// number is padded with filler or truncated to nine characters, and every
// check digit is recomputed from the values given.
func Information(documentNumber, birthDate, expiryDate string) string {
	doc := strings.ToUpper(documentNumber)
	if len(doc) > documentNumberLength {
		doc = doc[:documentNumberLength]
	} else {
		doc += strings.Repeat(string(mrz.Filler), documentNumberLength-len(doc))
	}

	var b strings.Builder
	for _, f := range []string{doc, birthDate, expiryDate} {
		b.WriteString(f)
		b.WriteByte(mrz.CheckDigit(f))
	}
	return b.String()
}

// Derive computes Kenc and Kmac for a document per ICAO 9303 Part 11.
func Derive(documentNumber, birthDate, expiryDate string) (KeyPair, error) {
	info := Information(documentNumber, birthDate, expiryDate)
	if len(info) != InformationLength {
		return KeyPair{}, fmt.Errorf("%w: got %d characters, want %d", ErrInvalidInformation, len(info), InformationLength)
	}

	digest := sha1.Sum([]byte(info)) //nolint:gosec
	seed := digest[:KeyLength]

	var kp KeyPair
	kp.Enc = deriveKey(seed, 1)
	kp.Mac = deriveKey(seed, 2)
	return kp, nil
}

// deriveKey hashes seed with a big-endian counter and returns the first
// sixteen bytes with DES parity applied.
func deriveKey(seed []byte, counter byte) [KeyLength]byte {
	buf := make([]byte, 0, len(seed)+4)
	buf = append(buf, seed...)
	buf = append(buf, 0, 0, 0, counter)
	digest := sha1.Sum(buf) //nolint:gosec

	var key [KeyLength]byte
	copy(key[:], digest[:KeyLength])
	AdjustParity(key[:])
	return key
}

// AdjustParity sets the least significant bit of every byte so that each
// byte has odd parity.
func AdjustParity(key []byte) {
	for i, b := range key {
		hi := b & 0xFE
		if bits.OnesCount8(hi)%2 == 0 {
			key[i] = hi | 1
		} else {
			key[i] = hi
		}
	}
}
