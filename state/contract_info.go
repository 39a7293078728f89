package state

import (
	"bytes"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/substrate-contracts/executive/primitives"
)

// ContractInfo is the persistent record of an alive contract, spec.md §3's
// ContractInfo type. It is encoded with RLP for storage, matching the
// teacher's builtin/types.go Encode/Decode pattern for on-chain structs.
type ContractInfo struct {
	TrieID        primitives.Hash
	CodeHash      primitives.Hash
	StorageSize   uint32
	RentAllowance *big.Int
	DeductBlock   primitives.BlockNumber
	LastWrite     uint32 // 0 means "never written"; blocks are 1-indexed in practice
}

// rlpContractInfo is the RLP wire shape. *big.Int already RLP-encodes
// directly, but TrieID/CodeHash are fixed arrays that rlp handles natively
// too; the alias exists so a future field can be added without touching the
// exported type's zero-value semantics.
type rlpContractInfo struct {
	TrieID        primitives.Hash
	CodeHash      primitives.Hash
	StorageSize   uint32
	RentAllowance *big.Int
	DeductBlock   uint32
	LastWrite     uint32
}

// EncodeRLP implements rlp.Encoder.
func (c *ContractInfo) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &rlpContractInfo{
		TrieID:        c.TrieID,
		CodeHash:      c.CodeHash,
		StorageSize:   c.StorageSize,
		RentAllowance: c.RentAllowance,
		DeductBlock:   uint32(c.DeductBlock),
		LastWrite:     c.LastWrite,
	})
}

// DecodeRLP implements rlp.Decoder.
func (c *ContractInfo) DecodeRLP(s *rlp.Stream) error {
	var dec rlpContractInfo
	if err := s.Decode(&dec); err != nil {
		return err
	}
	c.TrieID = dec.TrieID
	c.CodeHash = dec.CodeHash
	c.StorageSize = dec.StorageSize
	c.RentAllowance = dec.RentAllowance
	c.DeductBlock = primitives.BlockNumber(dec.DeductBlock)
	c.LastWrite = dec.LastWrite
	return nil
}

func encodeContractInfo(c *ContractInfo) []byte {
	var buf bytes.Buffer
	if err := rlp.Encode(&buf, c); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Clone returns a deep copy, so that a caller holding a cloned
// ContractInfo (e.g. exec's existing-cache-hit path on Call) cannot
// mutate the original through a shared RentAllowance pointer.
func (c *ContractInfo) Clone() *ContractInfo {
	cp := *c
	cp.RentAllowance = new(big.Int).Set(c.RentAllowance)
	return &cp
}

func decodeContractInfo(data []byte) *ContractInfo {
	c := new(ContractInfo)
	if err := rlp.DecodeBytes(data, c); err != nil {
		panic(err)
	}
	return c
}
