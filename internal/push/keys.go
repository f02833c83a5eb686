// Package push implements the receiving side of Web Push: key material for a
// subscription, payload decryption (RFC 8291 aes128gcm) and normalization of
// incoming payloads into displayable notifications.
package push

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/satriojati/storymap/internal/client/models"
)

// Keys is the per-subscription key material: an ECDH P-256 key pair and a
// 16-byte auth secret. The public half is sent to the backend inside the
// subscription; the private half stays on this device and decrypts incoming
// payloads.
type Keys struct {
	priv *ecdh.PrivateKey
	auth []byte
}

// GenerateKeys creates fresh key material for a new subscription.
func GenerateKeys() (*Keys, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate subscription key pair: %w", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		return nil, fmt.Errorf("failed to generate auth secret: %w", err)
	}
	return &Keys{priv: priv, auth: auth}, nil
}

// Subscription builds the wire-format subscription for the given delivery
// endpoint. Key material is base64url encoded without padding, as push
// services expect.
func (k *Keys) Subscription(endpoint string) models.Subscription {
	enc := base64.RawURLEncoding
	return models.Subscription{
		Endpoint: endpoint,
		Keys: models.SubscriptionKeys{
			P256dh: enc.EncodeToString(k.priv.PublicKey().Bytes()),
			Auth:   enc.EncodeToString(k.auth),
		},
	}
}

type keysExport struct {
	PrivateKey string `json:"privateKey"`
	Auth       string `json:"auth"`
}

// Export serializes the key material for local persistence. The result
// contains the private key and must never leave the device.
func (k *Keys) Export() ([]byte, error) {
	enc := base64.RawURLEncoding
	return json.Marshal(keysExport{
		PrivateKey: enc.EncodeToString(k.priv.Bytes()),
		Auth:       enc.EncodeToString(k.auth),
	})
}

// ImportKeys restores key material persisted by Export.
func ImportKeys(raw []byte) (*Keys, error) {
	var exp keysExport
	if err := json.Unmarshal(raw, &exp); err != nil {
		return nil, fmt.Errorf("failed to decode key material: %w", err)
	}
	enc := base64.RawURLEncoding
	privBytes, err := enc.DecodeString(exp.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	priv, err := ecdh.P256().NewPrivateKey(privBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	auth, err := enc.DecodeString(exp.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to decode auth secret: %w", err)
	}
	if len(auth) != 16 {
		return nil, fmt.Errorf("auth secret must be 16 bytes, got %d", len(auth))
	}
	return &Keys{priv: priv, auth: auth}, nil
}
