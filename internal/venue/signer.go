package venue

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/web3guy0/basisbot/internal/chainkit"
)

// EVMWalletSigner signs EIP-712 typed data with a raw ECDSA private key,
// using the standard domain-separator-then-message-hash scheme for any
// typed-data shape a short-venue action needs.
type EVMWalletSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewEVMWalletSigner parses a hex-encoded private key (with or without the
// 0x prefix) into a signer.
func NewEVMWalletSigner(hexKey string) (*EVMWalletSigner, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parse evm private key: %w", err)
	}
	return &EVMWalletSigner{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the wallet's public address.
func (s *EVMWalletSigner) Address() common.Address {
	return s.address
}

// SignTypedData hashes domain and message per EIP-712 and signs the result,
// returning a 65-byte [R || S || V] signature with V normalized to 27/28.
func (s *EVMWalletSigner) SignTypedData(domain apitypes.TypedDataDomain, message apitypes.TypedDataMessage, primaryType string) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
		},
		PrimaryType: primaryType,
		Domain:      domain,
		Message:     message,
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hash domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(primaryType, message)
	if err != nil {
		return nil, fmt.Errorf("hash message: %w", err)
	}

	rawData := append([]byte("\x19\x01"), append([]byte(domainSeparator), []byte(messageHash)...)...)
	hash := crypto.Keccak256Hash(rawData)

	signature, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign typed data: %w", err)
	}
	if signature[64] < 27 {
		signature[64] += 27
	}
	return signature, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

var _ chainkit.Signer = (*EVMWalletSigner)(nil)
