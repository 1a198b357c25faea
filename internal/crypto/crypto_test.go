package crypto

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptKey(t *testing.T) {
	blob, err := EncryptKey("0x"+testKey, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = DecryptKey(blob, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong password")
}

func TestEncryptKey_Rejects(t *testing.T) {
	_, err := EncryptKey(testKey, "")
	require.Error(t, err)

	_, err = EncryptKey("0x1234", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 32-byte key")
}

func TestLoadKey(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKey})
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	blob, err := EncryptKey(testKey, "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err = LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = LoadKey(KeyConfig{})
	require.ErrorIs(t, err, ErrNoKeySource)
}

func TestKeyFileAddress(t *testing.T) {
	blob, err := EncryptKey(testKey, "pw")
	require.NoError(t, err)

	want, err := AddressFromKey(testKey)
	require.NoError(t, err)
	got, err := KeyFileAddress(blob)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The address is authenticated, so swapping it breaks decryption.
	tampered := strings.Replace(string(blob), strings.ToLower(want.Hex()[2:]), strings.Repeat("1", 40), 1)
	if tampered == string(blob) {
		tampered = strings.Replace(string(blob), want.Hex()[2:], strings.Repeat("1", 40), 1)
	}
	_, err = DecryptKey([]byte(tampered), "pw")
	require.Error(t, err)

	_, err = KeyFileAddress([]byte(`{"version":1}`))
	require.Error(t, err)
}

func TestSignerSignTx(t *testing.T) {
	s, err := NewSigner(testKey, big.NewInt(34443))
	require.NoError(t, err)

	addr, err := AddressFromKey(testKey)
	require.NoError(t, err)
	assert.Equal(t, addr, s.Address())

	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(34443),
		Nonce:     7,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(0),
	})
	signed, err := s.SignTx(tx)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(34443)), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), from)

	_, err = NewSigner(testKey, nil)
	require.Error(t, err)
}

func TestWebhookAuth(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := NewWebhookAuth("topsecret", 5*time.Minute)
	w.now = func() time.Time { return now }

	h := w.HeadersAt("POST", "/api/messages", `{"text":"hi"}`, now.Unix())
	require.NoError(t, w.Verify("POST", "/api/messages", `{"text":"hi"}`, h[HeaderTimestamp], h[HeaderSignature]))

	err := w.Verify("POST", "/api/messages", `{"text":"tampered"}`, h[HeaderTimestamp], h[HeaderSignature])
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	old := w.HeadersAt("POST", "/api/messages", "", now.Add(-time.Hour).Unix())
	err = w.Verify("POST", "/api/messages", "", old[HeaderTimestamp], old[HeaderSignature])
	assert.ErrorIs(t, err, ErrSignatureExpired)

	assert.ErrorIs(t, w.Verify("POST", "/", "", "", ""), ErrSignatureMissing)
	assert.False(t, strings.Contains(w.String(), "topsecret"))
}
