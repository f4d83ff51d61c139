package evidence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avholt/wxstation/pkg/logger"
)

func TestSignAndVerify(t *testing.T) {
	signer, err := NewSigner("", logger.NewNop())
	require.NoError(t, err)

	issued := time.Date(2026, 8, 15, 11, 30, 0, 0, time.UTC)
	computed := issued.Add(2 * time.Minute)

	rec, err := signer.Sign("KSFO", "METAR KSFO 151130Z 28016KT 10SM FEW008 18/12 A3012",
		issued, computed, map[string]float64{"headwind_kt": 15.3})
	require.NoError(t, err)

	assert.Equal(t, "KSFO", rec.Station)
	assert.NotEmpty(t, rec.Digest)
	assert.NotEmpty(t, rec.Signature)
	assert.Equal(t, signer.PublicKeyHex(), rec.PublicKeyHex)

	assert.NoError(t, Verify(rec))
}

func TestVerifyDetectsTampering(t *testing.T) {
	signer, err := NewSigner("", logger.NewNop())
	require.NoError(t, err)

	now := time.Now().UTC()
	rec, err := signer.Sign("KSFO", "METAR KSFO 151130Z", now, now, map[string]int{"v": 1})
	require.NoError(t, err)

	tampered := *rec
	tampered.RawReport = "METAR KSFO 151130Z 00000KT"
	assert.Error(t, Verify(&tampered))

	resigned := *rec
	resigned.Signature = rec.Signature[:len(rec.Signature)-2] + "00"
	assert.Error(t, Verify(&resigned))
}

func TestSignDeterministicDigest(t *testing.T) {
	signer, err := NewSigner("", logger.NewNop())
	require.NoError(t, err)

	issued := time.Date(2026, 8, 15, 11, 30, 0, 0, time.UTC)
	a, err := signer.Sign("KSFO", "raw", issued, issued, map[string]int{"v": 1})
	require.NoError(t, err)
	b, err := signer.Sign("KSFO", "raw", issued, issued, map[string]int{"v": 1})
	require.NoError(t, err)

	assert.Equal(t, a.Digest, b.Digest)
}

func TestKeyRoundTrip(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "signing.pem")
	require.NoError(t, WriteKey(keyPath))

	first, err := NewSigner(keyPath, logger.NewNop())
	require.NoError(t, err)
	second, err := NewSigner(keyPath, logger.NewNop())
	require.NoError(t, err)

	// Same key file yields the same identity, so records from one load
	// verify after another.
	assert.Equal(t, first.PublicKeyHex(), second.PublicKeyHex())

	now := time.Now().UTC()
	rec, err := first.Sign("EGLL", "METAR EGLL 151150Z", now, now, map[string]int{"v": 2})
	require.NoError(t, err)
	assert.NoError(t, Verify(rec))
}

func TestNewSignerRejectsBadKeyFile(t *testing.T) {
	_, err := NewSigner(filepath.Join(t.TempDir(), "missing.pem"), logger.NewNop())
	assert.Error(t, err)
}
