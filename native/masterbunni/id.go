package masterbunni

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ID derives the pool identifier for a rush key: keccak256 over the four
// fields packed as consecutive 32-byte big-endian words. Value-equal keys
// hash identically; the digest is recomputed on every call and never stored.
func (k RushPoolKey) ID() PoolID {
	buf := make([]byte, 0, 4*32)
	buf = appendAddressWord(buf, k.StakeToken)
	buf = appendUint256Word(buf, k.StakeCap)
	buf = appendUint64Word(buf, k.StartTimestamp)
	buf = appendUint64Word(buf, k.ProgramLength)
	return common.BytesToHash(ethcrypto.Keccak256(buf))
}

// ID derives the pool identifier for a recur key: keccak256 over the three
// fields packed as consecutive 32-byte big-endian words.
func (k RecurPoolKey) ID() PoolID {
	buf := make([]byte, 0, 3*32)
	buf = appendAddressWord(buf, k.StakeToken)
	buf = appendAddressWord(buf, k.RewardToken)
	buf = appendUint64Word(buf, k.Duration)
	return common.BytesToHash(ethcrypto.Keccak256(buf))
}

func appendAddressWord(buf []byte, addr common.Address) []byte {
	var word [32]byte
	copy(word[12:], addr[:])
	return append(buf, word[:]...)
}

func appendUint256Word(buf []byte, v *uint256.Int) []byte {
	word := u(v).Bytes32()
	return append(buf, word[:]...)
}

func appendUint64Word(buf []byte, v uint64) []byte {
	var word [32]byte
	word[24] = byte(v >> 56)
	word[25] = byte(v >> 48)
	word[26] = byte(v >> 40)
	word[27] = byte(v >> 32)
	word[28] = byte(v >> 24)
	word[29] = byte(v >> 16)
	word[30] = byte(v >> 8)
	word[31] = byte(v)
	return append(buf, word[:]...)
}
