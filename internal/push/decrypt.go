package push

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// aes128gcm header: salt(16) | record size(4) | key id length(1) | key id.
// For push messages the key id is the sender's uncompressed P-256 public key.
const (
	saltLen      = 16
	headerMinLen = saltLen + 4 + 1
	keyLen       = 16
	nonceLen     = 12
)

// Decrypt opens an aes128gcm push payload encrypted for this subscription
// and returns the plaintext. Push payloads always fit a single record.
func (k *Keys) Decrypt(raw []byte) ([]byte, error) {
	if len(raw) < headerMinLen {
		return nil, fmt.Errorf("payload too short: %d bytes", len(raw))
	}
	salt := raw[:saltLen]
	rs := binary.BigEndian.Uint32(raw[saltLen : saltLen+4])
	idLen := int(raw[saltLen+4])
	if len(raw) < headerMinLen+idLen {
		return nil, fmt.Errorf("truncated key id")
	}
	senderPubBytes := raw[headerMinLen : headerMinLen+idLen]
	body := raw[headerMinLen+idLen:]
	if rs < uint32(len(body)) {
		return nil, fmt.Errorf("multi-record payloads are not supported")
	}

	senderPub, err := ecdh.P256().NewPublicKey(senderPubBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid sender public key: %w", err)
	}
	shared, err := k.priv.ECDH(senderPub)
	if err != nil {
		return nil, fmt.Errorf("key agreement failed: %w", err)
	}

	// RFC 8291 section 3.4: combine the shared secret with the auth secret
	// and both public keys, then derive the content key and nonce.
	keyInfo := append([]byte("WebPush: info\x00"), k.priv.PublicKey().Bytes()...)
	keyInfo = append(keyInfo, senderPubBytes...)
	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, k.auth, keyInfo), ikm); err != nil {
		return nil, fmt.Errorf("failed to derive input key: %w", err)
	}

	cek := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: aes128gcm\x00")), cek); err != nil {
		return nil, fmt.Errorf("failed to derive content key: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: nonce\x00")), nonce); err != nil {
		return nil, fmt.Errorf("failed to derive nonce: %w", err)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %w", err)
	}
	plain, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", err)
	}

	return stripPadding(plain)
}

// stripPadding removes the aes128gcm record padding: a 0x02 delimiter (last
// record) followed by zero or more 0x00 bytes.
func stripPadding(plain []byte) ([]byte, error) {
	i := len(plain) - 1
	for i >= 0 && plain[i] == 0x00 {
		i--
	}
	if i < 0 || plain[i] != 0x02 {
		return nil, fmt.Errorf("missing padding delimiter")
	}
	return plain[:i], nil
}
