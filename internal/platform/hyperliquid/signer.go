package hyperliquid

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vmihailenco/msgpack/v5"
)

// signL1Action produces the EIP-712 signature Hyperliquid expects on exchange
// actions. The action is msgpack-encoded, extended with the nonce and an empty
// vault marker, and keccak-hashed into the connectionId of an Agent struct,
// which is then signed under the fixed "Exchange" domain. The msgpack field
// order of the action types must match the venue's canonical encoding or the
// recovered signer will not be the wallet.
func signL1Action(key *ecdsa.PrivateKey, action any, nonce uint64, testnet bool) (rsvSignature, error) {
	packed, err := msgpack.Marshal(action)
	if err != nil {
		return rsvSignature{}, fmt.Errorf("hyperliquid: msgpack action: %w", err)
	}

	data := make([]byte, 0, len(packed)+9)
	data = append(data, packed...)
	data = binary.BigEndian.AppendUint64(data, nonce)
	data = append(data, 0x00) // no vault address

	connectionID := ethcrypto.Keccak256(data)

	source := "a"
	if testnet {
		source = "b"
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              "Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1337),
			VerifyingContract: "0x0000000000000000000000000000000000000000",
		},
		Message: apitypes.TypedDataMessage{
			"source":       source,
			"connectionId": hexutil.Bytes(connectionID),
		},
	}

	sighash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return rsvSignature{}, fmt.Errorf("hyperliquid: hash typed data: %w", err)
	}

	sig, err := ethcrypto.Sign(sighash, key)
	if err != nil {
		return rsvSignature{}, fmt.Errorf("hyperliquid: sign action: %w", err)
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])

	return rsvSignature{
		R: hexutil.EncodeBig(r),
		S: hexutil.EncodeBig(s),
		V: sig[64] + 27,
	}, nil
}
