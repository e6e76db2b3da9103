package manifest

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/symprefix/keys"
)

func (m *Manifest) SignatureAlg() string { return m.pair("CRYPTO", "Signature-Alg") }
func (m *Manifest) HashAlg() string      { return m.pair("CRYPTO", "Hash-Alg") }
func (m *Manifest) Signature() string    { return m.pair("CRYPTO", "Signature") }
func (m *Manifest) IssuerKey() string    { return m.pair("CRYPTO", "Issuer-Key") }

// IssuerPublicKeyBytes returns the raw public key bytes for the issuer.
// Supported encodings:
//   - ed25519:<base64>
//   - dilithium3:<base64>
func (m *Manifest) IssuerPublicKeyBytes() ([]byte, error) {
	issuer := m.IssuerKey()
	if issuer == "" {
		return nil, newError(KindCrypto, "SPM-CRYPTO-101", "missing Issuer-Key")
	}
	alg, enc, ok := strings.Cut(issuer, ":")
	if !ok {
		return nil, newError(KindCrypto, "SPM-CRYPTO-102", "invalid Issuer-Key encoding")
	}
	pub, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, wrapError(KindCrypto, "SPM-CRYPTO-103", "invalid issuer key base64", err)
	}

	switch alg {
	case "ed25519":
		if len(pub) != ed25519.PublicKeySize {
			return nil, newError(KindCrypto, "SPM-CRYPTO-104", "invalid ed25519 public key length")
		}
		return pub, nil
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return nil, wrapError(KindCrypto, "SPM-CRYPTO-105", "invalid dilithium3 public key", err)
		}
		return pub, nil
	default:
		return nil, newError(KindCrypto, "SPM-CRYPTO-106", "unsupported issuer key encoding")
	}
}

// SignatureBytes decodes and length-checks the signature.
func (m *Manifest) SignatureBytes() ([]byte, error) {
	s := m.Signature()
	if s == "" {
		return nil, newError(KindCrypto, "SPM-CRYPTO-111", "missing Signature")
	}
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, wrapError(KindCrypto, "SPM-CRYPTO-112", "invalid signature base64", err)
	}
	switch m.SignatureAlg() {
	case "":
		return nil, newError(KindCrypto, "SPM-CRYPTO-113", "missing Signature-Alg")
	case "ed25519":
		if len(sig) != ed25519.SignatureSize {
			return nil, newError(KindCrypto, "SPM-CRYPTO-114", "invalid ed25519 signature length")
		}
	case "dilithium3":
		if len(sig) != mode3.SignatureSize {
			return nil, newError(KindCrypto, "SPM-CRYPTO-115", "invalid dilithium3 signature length")
		}
	}
	return sig, nil
}

// Verify checks the manifest signature over hash(SignedBytes).
// Supported: Signature-Alg ed25519 or dilithium3; Hash-Alg sha256, sha512,
// or sha3-256.
func (m *Manifest) Verify() error {
	pub, err := m.IssuerPublicKeyBytes()
	if err != nil {
		return err
	}
	sig, err := m.SignatureBytes()
	if err != nil {
		return err
	}
	hashAlg := m.HashAlg()
	if hashAlg == "" {
		return newError(KindCrypto, "SPM-CRYPTO-121", "missing Hash-Alg")
	}
	digest, err := keys.Digest(hashAlg, m.Signed)
	if err != nil {
		return wrapError(KindCrypto, "SPM-CRYPTO-122", "unsupported Hash-Alg", err)
	}

	issuerAlg, _, _ := strings.Cut(m.IssuerKey(), ":")
	sigAlg := m.SignatureAlg()
	if issuerAlg != sigAlg {
		return newError(KindCrypto, "SPM-CRYPTO-123", "Issuer-Key and Signature-Alg disagree")
	}

	switch sigAlg {
	case "ed25519":
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return newError(KindCrypto, "SPM-CRYPTO-131", "signature verification failed")
		}
		return nil
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return wrapError(KindCrypto, "SPM-CRYPTO-105", "invalid dilithium3 public key", err)
		}
		if !mode3.Verify(&pk, digest, sig) {
			return newError(KindCrypto, "SPM-CRYPTO-131", "signature verification failed")
		}
		return nil
	default:
		return newError(KindCrypto, "SPM-CRYPTO-124", "unsupported Signature-Alg")
	}
}
