package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mathrand "math/rand/v2"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/signetauth/signet/pkg/cryptox"
)

// Supported JWT signing algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmEdDSA = "EdDSA"
)

// KeyManager owns the signing and verification keys for an instance. Keys
// are ephemeral: generated at startup and held only in memory, so every
// restart invalidates outstanding access tokens (refresh tokens survive, they
// are opaque and stored server-side).
//
// Multiple signing keys are kept and picked at random per signature to
// spread load and make rotation less eventful.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	algorithm string
	signers   []Signer
	mu        sync.RWMutex
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Algorithm specifies which signing algorithm to use: "RS256" or "EdDSA".
	Algorithm string

	// Issuer is the issuer claim (iss) validated in tokens.
	Issuer string

	// Audience is the list of audience values (aud) validated in tokens.
	// Empty means no audience validation.
	Audience []string

	// RSABits is the RSA key size for RS256. Defaults to 4096.
	RSABits int

	// NumKeys is how many signing keys to generate. Defaults to 3, capped
	// at 10.
	NumKeys int
}

// NewEphemeralKeyManager creates a KeyManager with freshly generated keys.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 3
	}
	if numKeys > 10 {
		numKeys = 10
	}

	keyset := NewKeySet()
	signers := make([]Signer, 0, numKeys)

	for i := 0; i < numKeys; i++ {
		keyID, err := generateRandomKeyID()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key ID: %w", err)
		}

		signer, err := generateSigner(opts.Algorithm, keyID, opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}

		signers = append(signers, signer)

		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
		}
	}

	var verifier Verifier
	switch opts.Algorithm {
	case AlgorithmRS256:
		verifier = NewVerifier(keyset, opts.Issuer, opts.Audience, jwt.SigningMethodRS256.Alg())
	case AlgorithmEdDSA:
		verifier = NewVerifier(keyset, opts.Issuer, opts.Audience, jwt.SigningMethodEdDSA.Alg())
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: RS256, EdDSA)", opts.Algorithm)
	}

	return &KeyManager{
		Verifier:  verifier,
		KeySet:    keyset,
		algorithm: opts.Algorithm,
		signers:   signers,
	}, nil
}

// GetSigner returns a randomly selected signer to distribute signing load.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if len(km.signers) == 0 {
		return nil
	}
	return km.signers[mathrand.IntN(len(km.signers))]
}

// Algorithm returns the signing algorithm this manager was built with.
func (km *KeyManager) Algorithm() string { return km.algorithm }

// NumSigners returns how many signing keys the manager holds.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

func generateSigner(algorithm, keyID string, rsaBits int) (Signer, error) {
	switch algorithm {
	case AlgorithmRS256:
		bits := rsaBits
		if bits == 0 {
			bits = 4096
		}
		pemBytes, err := cryptox.GenerateRSAKey(bits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RS256 key: %w", err)
		}
		return NewSignerRS256(keyID, pemBytes)

	case AlgorithmEdDSA:
		pemBytes, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("failed to generate EdDSA key: %w", err)
		}
		return NewSignerEdDSA(keyID, pemBytes)

	default:
		return nil, fmt.Errorf("unsupported algorithm %q", algorithm)
	}
}

func generateRandomKeyID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
