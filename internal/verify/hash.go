// Package verify derives the tamper-evident verification hash committed to
// the ledger for each certificate.
package verify

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// clockSkew backdates the verification date so a ledger node with a lagging
// clock never rejects the timestamp as being in the future.
const clockSkew = 40 * time.Second

// Fields is the canonical ordered tuple the hash commits to. BrokerCompanies
// is joined with "," before packing; the joined form is also what the mint
// payload carries.
type Fields struct {
	ReraPermit       string
	PropertyID       string
	DeveloperName    string
	ProjectName      string
	Location         string
	UnitType         string
	BrokerCompanies  []string
	VerificationDate int64
}

// JoinedBrokers returns the comma-joined broker company list.
func (f Fields) JoinedBrokers() string {
	return strings.Join(f.BrokerCompanies, ",")
}

// VerificationDate returns the skewed unix timestamp recorded at submission.
func VerificationDate(now time.Time) int64 {
	return now.Add(-clockSkew).Unix()
}

// Hash computes Keccak-256 over the tight packing of the tuple: each string
// as raw UTF-8 bytes in order, the timestamp as an unsigned 256-bit
// big-endian integer. Identical input always yields an identical digest.
func Hash(f Fields) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(f.ReraPermit))
	h.Write([]byte(f.PropertyID))
	h.Write([]byte(f.DeveloperName))
	h.Write([]byte(f.ProjectName))
	h.Write([]byte(f.Location))
	h.Write([]byte(f.UnitType))
	h.Write([]byte(f.JoinedBrokers()))
	h.Write(packUint256(uint64(f.VerificationDate)))

	var digest [32]byte
	h.Sum(digest[:0])
	return digest
}

// HexHash returns the 0x-prefixed lowercase hex form of Hash.
func HexHash(f Fields) string {
	digest := Hash(f)
	return "0x" + hex.EncodeToString(digest[:])
}

func packUint256(v uint64) []byte {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint64(buf[24:], v)
	return buf
}
