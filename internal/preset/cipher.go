package preset

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"focal/internal/services"
)

// KeyEnvVar names the environment variable carrying preset key material.
const KeyEnvVar = "FOCAL_PRESET_KEY"

const encryptedExtension = ".encrypted"

const (
	kdfIterations = 100000
	kdfKeyLength  = 32
)

// kdfSalt is fixed so the same passphrase always derives the same key; the
// container format has no room for a per-file salt.
var kdfSalt = []byte("preset_salt_12345678")

// Cipher encrypts and decrypts preset containers. The on-disk format is
// base64(nonce || AES-256-GCM(zlib(xmp))), with the key derived from a
// passphrase via PBKDF2-SHA256.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a cipher from the provided passphrase.
func NewCipher(passphrase []byte) (*Cipher, error) {
	if len(passphrase) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "preset", "derive key", "empty preset key", nil)
	}
	key := pbkdf2.Key(passphrase, kdfSalt, kdfIterations, kdfKeyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// NewCipherFromEnv derives a cipher from the FOCAL_PRESET_KEY environment variable.
func NewCipherFromEnv() (*Cipher, error) {
	passphrase := os.Getenv(KeyEnvVar)
	if passphrase == "" {
		return nil, services.Wrap(services.ErrConfiguration, "preset", "derive key",
			KeyEnvVar+" is not set", nil)
	}
	return NewCipher([]byte(passphrase))
}

// Encrypt compresses and seals plaintext preset data into the container format.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	var compressed bytes.Buffer
	writer, err := zlib.NewWriterLevel(&compressed, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("init compressor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("compress preset: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("flush compressor: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, compressed.Bytes(), nil)

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(encoded, sealed)
	return encoded, nil
}

// Decrypt opens a container produced by Encrypt. A wrong key fails
// authentication and yields an error rather than garbled preset data.
func (c *Cipher) Decrypt(encoded []byte) ([]byte, error) {
	sealed := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(sealed, bytes.TrimSpace(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrPresetDecrypt, "preset", "decrypt", "container is not valid base64", err)
	}
	sealed = sealed[:n]

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, services.Wrap(services.ErrPresetDecrypt, "preset", "decrypt", "container too short", nil)
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	compressed, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrPresetDecrypt, "preset", "decrypt", "authentication failed (wrong key or corrupt file)", err)
	}

	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, services.Wrap(services.ErrPresetDecrypt, "preset", "decrypt", "decompress preset", err)
	}
	defer reader.Close()

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, services.Wrap(services.ErrPresetDecrypt, "preset", "decrypt", "decompress preset", err)
	}
	return plaintext, nil
}

// EncryptFile seals a preset file on disk. When outputPath is empty the
// encrypted container is written next to the source with an ".encrypted"
// extension appended.
func (c *Cipher) EncryptFile(presetPath, outputPath string) (string, error) {
	data, err := os.ReadFile(presetPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "preset", "encrypt", "read preset file", err)
	}
	encoded, err := c.Encrypt(data)
	if err != nil {
		return "", err
	}
	if outputPath == "" {
		outputPath = presetPath + encryptedExtension
	}
	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		return "", fmt.Errorf("write encrypted preset: %w", err)
	}
	return outputPath, nil
}

// DecryptFile opens an encrypted preset file and writes the plaintext XMP.
// When outputPath is empty the ".encrypted" extension is stripped.
func (c *Cipher) DecryptFile(encryptedPath, outputPath string) (string, error) {
	data, err := os.ReadFile(encryptedPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "preset", "decrypt", "read encrypted preset", err)
	}
	plaintext, err := c.Decrypt(data)
	if err != nil {
		return "", err
	}
	if outputPath == "" {
		if trimmed, ok := trimSuffixFold(encryptedPath, encryptedExtension); ok {
			outputPath = trimmed
		} else {
			outputPath = encryptedPath + ".xmp"
		}
	}
	if err := os.WriteFile(outputPath, plaintext, 0o644); err != nil {
		return "", fmt.Errorf("write decrypted preset: %w", err)
	}
	return outputPath, nil
}

// GenerateKey produces a random passphrase suitable for FOCAL_PRESET_KEY.
func GenerateKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

func trimSuffixFold(value, suffix string) (string, bool) {
	if len(value) < len(suffix) {
		return value, false
	}
	if !strings.EqualFold(value[len(value)-len(suffix):], suffix) {
		return value, false
	}
	return value[:len(value)-len(suffix)], true
}
