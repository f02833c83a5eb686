package push

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys_SubscriptionEncoding(t *testing.T) {
	keys, err := GenerateKeys()
	require.NoError(t, err)

	sub := keys.Subscription("https://push.example.com/send/abc")
	assert.Equal(t, "https://push.example.com/send/abc", sub.Endpoint)

	pub, err := base64.RawURLEncoding.DecodeString(sub.Keys.P256dh)
	require.NoError(t, err)
	assert.Len(t, pub, 65, "uncompressed P-256 point")
	assert.Equal(t, byte(0x04), pub[0])

	auth, err := base64.RawURLEncoding.DecodeString(sub.Keys.Auth)
	require.NoError(t, err)
	assert.Len(t, auth, 16)
}

func TestKeys_ExportImportRoundTrip(t *testing.T) {
	keys, err := GenerateKeys()
	require.NoError(t, err)

	raw, err := keys.Export()
	require.NoError(t, err)

	restored, err := ImportKeys(raw)
	require.NoError(t, err)

	assert.Equal(t, keys.Subscription("e").Keys, restored.Subscription("e").Keys)
}

func TestImportKeys_Garbage(t *testing.T) {
	_, err := ImportKeys([]byte("not json"))
	assert.Error(t, err)

	_, err = ImportKeys([]byte(`{"privateKey":"AA","auth":"AA"}`))
	assert.Error(t, err)
}

// TestDecrypt_RealSender encrypts with an independent Web Push sender
// implementation and checks our receiver opens it.
func TestDecrypt_RealSender(t *testing.T) {
	keys, err := GenerateKeys()
	require.NoError(t, err)

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		captured, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sub := keys.Subscription(srv.URL)
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	message := []byte(`{"message":"Ada story baru","data":{"id":"s1","name":"Ana"}}`)
	resp, err := webpush.SendNotification(message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpush.Options{
		Subscriber:      "mailto:test@example.com",
		TTL:             30,
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEmpty(t, captured)

	plain, err := keys.Decrypt(captured)
	require.NoError(t, err)
	assert.Equal(t, message, plain)
}

func TestDecrypt_TamperedPayloadFails(t *testing.T) {
	keys, err := GenerateKeys()
	require.NoError(t, err)

	_, err = keys.Decrypt([]byte("short"))
	assert.Error(t, err)
}
