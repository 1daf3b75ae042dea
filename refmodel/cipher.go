// Package refmodel provides the reference cipher that results are checked
// against.
package refmodel

import (
	"crypto/aes"

	"lukechampine.com/uint128"
)

// Cipher transforms one 128 bit block under a 128 bit key. Values map to
// bytes in big-endian order, so the most significant byte of the key is the
// first key byte.
type Cipher interface {
	Encrypt(key, block uint128.Uint128) uint128.Uint128
	Decrypt(key, block uint128.Uint128) uint128.Uint128
}

// ECB is AES-128 in electronic codebook mode over a single block.
type ECB struct{}

// NewECB returns the AES-128 ECB reference.
func NewECB() ECB {
	return ECB{}
}

// Encrypt encrypts the block.
func (ECB) Encrypt(key, block uint128.Uint128) uint128.Uint128 {
	return transform(key, block, false)
}

// Decrypt decrypts the block.
func (ECB) Decrypt(key, block uint128.Uint128) uint128.Uint128 {
	return transform(key, block, true)
}

func transform(key, block uint128.Uint128, decrypt bool) uint128.Uint128 {
	var k, in, out [aes.BlockSize]byte

	key.PutBytesBE(k[:])
	block.PutBytesBE(in[:])

	c, err := aes.NewCipher(k[:])
	if err != nil {
		// A 16 byte key is always valid.
		panic(err)
	}

	if decrypt {
		c.Decrypt(out[:], in[:])
	} else {
		c.Encrypt(out[:], in[:])
	}

	return uint128.FromBytesBE(out[:])
}
