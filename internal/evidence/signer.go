// Package evidence produces tamper-evident records of performance
// calculations. Each record carries a SHA-256 digest of its canonical
// JSON form and an Ed25519 signature over that digest, so a stored
// calculation can later be shown to match the snapshot it was derived
// from.
package evidence

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/avholt/wxstation/pkg/logger"
)

const pemBlockType = "PRIVATE KEY"

// Record is the signed envelope around one calculation result.
type Record struct {
	Station      string          `json:"station"`
	IssuedAt     time.Time       `json:"issued_at"`
	ComputedAt   time.Time       `json:"computed_at"`
	RawReport    string          `json:"raw_report"`
	Result       json.RawMessage `json:"result"`
	Digest       string          `json:"digest"`
	Signature    string          `json:"signature"`
	PublicKeyHex string          `json:"public_key"`
}

// Signer signs calculation records with a station-local Ed25519 key.
type Signer struct {
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	logger *logger.Logger
}

// NewSigner loads the key at keyPath, or generates an ephemeral key when
// keyPath is empty. An ephemeral key still yields verifiable records for
// the lifetime of the process.
func NewSigner(keyPath string, log *logger.Logger) (*Signer, error) {
	slog := log.Named("evidence")

	if keyPath == "" {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		slog.Warn("no signing key configured, using ephemeral key",
			logger.String("public_key", hex.EncodeToString(pub)))
		return &Signer{priv: priv, pub: pub, logger: slog}, nil
	}

	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key %s: %w", keyPath, err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemBlockType {
		return nil, fmt.Errorf("signing key %s is not a PEM %s block", keyPath, pemBlockType)
	}
	if len(block.Bytes) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key %s: expected %d byte seed, got %d",
			keyPath, ed25519.SeedSize, len(block.Bytes))
	}

	priv := ed25519.NewKeyFromSeed(block.Bytes)
	pub := priv.Public().(ed25519.PublicKey)
	slog.Info("loaded signing key",
		logger.String("path", keyPath),
		logger.String("public_key", hex.EncodeToString(pub)))
	return &Signer{priv: priv, pub: pub, logger: slog}, nil
}

// WriteKey generates a fresh seed and writes it as a PEM file, for
// first-run provisioning.
func WriteKey(keyPath string) error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate signing key: %w", err)
	}
	blob := pem.EncodeToMemory(&pem.Block{Type: pemBlockType, Bytes: priv.Seed()})
	if err := os.WriteFile(keyPath, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write signing key %s: %w", keyPath, err)
	}
	return nil
}

// PublicKeyHex returns the hex encoding of the signer's public key.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.pub)
}

// Sign builds a signed record for one calculation result. The digest is
// taken over the canonical JSON of the payload fields, so re-marshalling
// the same inputs always reproduces it.
func (s *Signer) Sign(station, rawReport string, issuedAt, computedAt time.Time, result any) (*Record, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal calculation result: %w", err)
	}

	rec := &Record{
		Station:    station,
		IssuedAt:   issuedAt.UTC(),
		ComputedAt: computedAt.UTC(),
		RawReport:  rawReport,
		Result:     resultJSON,
	}

	digest := rec.payloadDigest()
	rec.Digest = hex.EncodeToString(digest[:])
	rec.Signature = hex.EncodeToString(ed25519.Sign(s.priv, digest[:]))
	rec.PublicKeyHex = s.PublicKeyHex()
	return rec, nil
}

// Verify checks a record's digest and signature against the embedded
// public key.
func Verify(rec *Record) error {
	digest := rec.payloadDigest()
	if hex.EncodeToString(digest[:]) != rec.Digest {
		return fmt.Errorf("digest mismatch: record content was altered")
	}

	pub, err := hex.DecodeString(rec.PublicKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key on record")
	}
	sig, err := hex.DecodeString(rec.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding on record")
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}

// payloadDigest hashes the payload fields in a fixed order. The digest
// and signature fields themselves are excluded.
func (r *Record) payloadDigest() [sha256.Size]byte {
	payload, _ := json.Marshal(struct {
		Station    string          `json:"station"`
		IssuedAt   time.Time       `json:"issued_at"`
		ComputedAt time.Time       `json:"computed_at"`
		RawReport  string          `json:"raw_report"`
		Result     json.RawMessage `json:"result"`
	}{r.Station, r.IssuedAt, r.ComputedAt, r.RawReport, r.Result})
	return sha256.Sum256(payload)
}
