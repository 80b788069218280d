// Package cryptojs decrypts and produces the passphrase ciphertexts that the
// browser's CryptoJS.AES.encrypt(text, passphrase) emits: base64 of
// "Salted__" | 8-byte salt | AES-256-CBC ciphertext, key and IV derived with
// OpenSSL's EVP_BytesToKey over MD5.
package cryptojs

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" //nolint:gosec // EVP_BytesToKey is defined over MD5
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	keyLen  = 32
	saltLen = 8
)

var (
	saltedPrefix = []byte("Salted__")

	ErrMalformed = errors.New("cryptojs: malformed ciphertext")
	ErrPadding   = errors.New("cryptojs: bad padding")
)

// Decrypt returns the plaintext of a CryptoJS passphrase ciphertext.
func Decrypt(ciphertext, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) < len(saltedPrefix)+saltLen+aes.BlockSize || !bytes.HasPrefix(raw, saltedPrefix) {
		return "", ErrMalformed
	}
	salt := raw[len(saltedPrefix) : len(saltedPrefix)+saltLen]
	body := raw[len(saltedPrefix)+saltLen:]
	if len(body)%aes.BlockSize != 0 {
		return "", ErrMalformed
	}

	key, iv := deriveKeyIV([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	out, err = unpad(out)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Encrypt is the inverse of Decrypt with a random salt. The CLI uses it to
// build login payloads the same way the UI does.
func Encrypt(plaintext, passphrase string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key, iv := deriveKeyIV([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	padded := pad([]byte(plaintext))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	buf := make([]byte, 0, len(saltedPrefix)+saltLen+len(out))
	buf = append(buf, saltedPrefix...)
	buf = append(buf, salt...)
	buf = append(buf, out...)
	return base64.StdEncoding.EncodeToString(buf), nil
}

func deriveKeyIV(pass, salt []byte) (key, iv []byte) {
	var (
		derived []byte
		prev    []byte
	)
	for len(derived) < keyLen+aes.BlockSize {
		h := md5.New() //nolint:gosec
		h.Write(prev)
		h.Write(pass)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+aes.BlockSize]
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrPadding
		}
	}
	return b[:len(b)-n], nil
}
