package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	phoneSaltLen    = 16
	phoneKeyLen     = 32
	phoneIterations = 65536

	// phoneV2Prefix marks values encrypted with the process-wide key. It
	// cannot occur in standard base64, so legacy values stay decodable.
	phoneV2Prefix = "v2."
	phoneKeySalt  = "restaurant-table-reservation/phone"
)

// ErrPhoneCiphertext is returned when stored phone data cannot be decoded
// or decrypted with the configured secret.
var ErrPhoneCiphertext = errors.New("invalid phone ciphertext")

// PhoneCipher encrypts phone numbers at rest with AES-256-CBC and a fresh
// IV per value. The AES and HMAC keys are derived once from the master
// secret with PBKDF2-HMAC-SHA256, so reading a row costs one AES pass. The
// stored form is "v2." + base64(iv | ciphertext).
//
// Values written by the previous format, base64(salt | iv | ciphertext)
// with a key derived per value, are still decrypted but cost a full PBKDF2
// run each; ClientRepo.UpgradePhones rewrites them.
type PhoneCipher struct {
	secret []byte
	block  cipher.Block
	macKey []byte
}

// NewPhoneCipher returns a cipher keyed by secret, which must not be empty.
func NewPhoneCipher(secret string) (*PhoneCipher, error) {
	if secret == "" {
		return nil, errors.New("phone cipher secret is empty")
	}
	keys := pbkdf2.Key([]byte(secret), []byte(phoneKeySalt), phoneIterations, 2*phoneKeyLen, sha256.New)
	block, err := aes.NewCipher(keys[:phoneKeyLen])
	if err != nil {
		return nil, err
	}
	return &PhoneCipher{secret: []byte(secret), block: block, macKey: keys[phoneKeyLen:]}, nil
}

func (p *PhoneCipher) legacyKey(salt []byte) []byte {
	return pbkdf2.Key(p.secret, salt, phoneIterations, phoneKeyLen, sha256.New)
}

// Digest returns a deterministic keyed hash of phone for exact-match
// lookups. Surrounding spaces are ignored.
func (p *PhoneCipher) Digest(phone string) string {
	m := hmac.New(sha256.New, p.macKey)
	m.Write([]byte(strings.TrimSpace(phone)))
	return hex.EncodeToString(m.Sum(nil))
}

// Encrypt returns the storable form of phone.
func (p *PhoneCipher) Encrypt(phone string) (string, error) {
	plain := pkcs7Pad([]byte(phone), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(plain))
	iv := out[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	cipher.NewCBCEncrypter(p.block, iv).CryptBlocks(out[aes.BlockSize:], plain)
	return phoneV2Prefix + base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt and also reads the legacy format. Tampered or
// foreign data yields ErrPhoneCiphertext.
func (p *PhoneCipher) Decrypt(stored string) (string, error) {
	if rest, ok := strings.CutPrefix(stored, phoneV2Prefix); ok {
		raw, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrPhoneCiphertext, err)
		}
		if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
			return "", ErrPhoneCiphertext
		}
		return decryptCBC(p.block, raw[:aes.BlockSize], raw[aes.BlockSize:])
	}
	return p.decryptLegacy(stored)
}

func (p *PhoneCipher) decryptLegacy(stored string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPhoneCiphertext, err)
	}
	head := phoneSaltLen + aes.BlockSize
	if len(raw) < head+aes.BlockSize || (len(raw)-head)%aes.BlockSize != 0 {
		return "", ErrPhoneCiphertext
	}
	salt, iv, body := raw[:phoneSaltLen], raw[phoneSaltLen:head], raw[head:]

	block, err := aes.NewCipher(p.legacyKey(salt))
	if err != nil {
		return "", err
	}
	return decryptCBC(block, iv, body)
}

func decryptCBC(block cipher.Block, iv, body []byte) (string, error) {
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
	plain, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, ErrPhoneCiphertext
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, ErrPhoneCiphertext
	}
	if !bytes.Equal(b[len(b)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, ErrPhoneCiphertext
	}
	return b[:len(b)-n], nil
}
