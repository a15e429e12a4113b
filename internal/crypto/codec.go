package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize размер симметричного ключа кодека
	KeySize = chacha20poly1305.KeySize

	nonceSize        = chacha20poly1305.NonceSize
	tagSize          = 16
	minCiphertextLen = nonceSize + tagSize
)

var ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")

// DecryptError сигнализирует о невозможности расшифровать содержимое:
// испорченный ciphertext или несовпадающий ключ. Вызывающий обязан
// считать такое сообщение нечитаемым, а не пустым.
type DecryptError struct {
	Message string
}

func (e *DecryptError) Error() string {
	return e.Message
}

// IsDecryptError проверяет, является ли ошибка ошибкой расшифровки
func IsDecryptError(err error) bool {
	var de *DecryptError
	return errors.As(err, &de)
}

// Codec шифрует содержимое сообщений перед сохранением и расшифровывает
// при чтении. Ключ передаётся при создании; глобального состояния нет.
type Codec struct {
	aead cipher.AEAD
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// Encrypt шифрует открытый текст ChaCha20-Poly1305 со случайным nonce.
// Формат: base64(nonce[12] + ciphertext+tag).
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	wire := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(wire), nil
}

// Decrypt расшифровывает содержимое, сохранённое Encrypt
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	wire, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &DecryptError{Message: fmt.Sprintf("invalid base64 ciphertext: %v", err)}
	}

	if len(wire) < minCiphertextLen {
		return "", &DecryptError{Message: fmt.Sprintf("ciphertext too short: %d bytes, minimum %d", len(wire), minCiphertextLen)}
	}

	nonce := wire[:nonceSize]
	plaintext, err := c.aead.Open(nil, nonce, wire[nonceSize:], nil)
	if err != nil {
		return "", &DecryptError{Message: "decryption failed: wrong key or tampered ciphertext"}
	}

	return string(plaintext), nil
}
