package domain

import (
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// WavesAssetID is the literal string empty asset-id bytes encode to
// (spec §6.4): the native coin has no on-chain asset id.
const WavesAssetID = "WAVES"

// WavesName and WavesPrecision describe the native coin as a synthetic
// asset (spec §6.4).
const (
	WavesName      = "Waves"
	WavesPrecision = 8
)

const addressVersion byte = 0x01

// DeriveAddress computes the base58 chain address for a public key, given
// the chain id byte, following the Waves address scheme (spec §6.4):
//
//	pkh      = keccak256(blake2b256(pk))[0:20]
//	prefix   = 0x01 || chain_id || pkh
//	checksum = keccak256(blake2b256(prefix))[0:4]
//	address  = base58(prefix || checksum)
func DeriveAddress(publicKey []byte, chainID byte) string {
	pkh := secureHash(publicKey)[:20]

	prefix := make([]byte, 0, 22)
	prefix = append(prefix, addressVersion, chainID)
	prefix = append(prefix, pkh...)

	checksum := secureHash(prefix)[:4]

	raw := make([]byte, 0, 26)
	raw = append(raw, prefix...)
	raw = append(raw, checksum...)

	return base58.Encode(raw)
}

// secureHash is keccak256(blake2b256(data)), the two-stage hash the Waves
// protocol uses for both the address public-key hash and its checksum.
func secureHash(data []byte) []byte {
	b2 := blake2b.Sum256(data)
	k := sha3.NewLegacyKeccak256()
	k.Write(b2[:])
	return k.Sum(nil)
}

// AssetIDToString encodes raw asset-id bytes the way the chain does: empty
// bytes are the native coin sentinel, anything else is base58 (spec §6.4).
func AssetIDToString(assetID []byte) string {
	if len(assetID) == 0 {
		return WavesAssetID
	}
	return base58.Encode(assetID)
}

// IsWavesAssetID reports whether an encoded asset id names the native coin.
func IsWavesAssetID(assetID string) bool {
	return assetID == WavesAssetID
}

// EncodeAddressBytes base58-encodes an already-derived address's raw bytes,
// as opposed to DeriveAddress which computes them from a public key. Used
// when the update stream hands the consumer an address directly (balances,
// leasing, data entries — spec §6.3) rather than a public key.
func EncodeAddressBytes(raw []byte) string {
	return base58.Encode(raw)
}
