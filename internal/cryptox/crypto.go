// Package cryptox implements the password-based codec that seals a chest.
//
// A sealed value is a self-describing JSON record carrying every parameter
// needed to open it again: cipher, key derivation function and its cost
// parameters, salt, nonce and the ciphertext with its GCM tag appended.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchest/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// ErrAuthentication is returned by Decrypt whenever a record cannot be
// opened: wrong password, tampered ciphertext or a malformed record.
var ErrAuthentication = errors.New("authentication failed")

const (
	RecordVersion = 1

	CipherAES256GCM = "aes-256-gcm"

	KDFArgon2id     = "argon2id"
	KDFPBKDF2SHA256 = "pbkdf2-sha256"

	keySize   = 32
	saltSize  = 16
	nonceSize = 12
)

// Upper bounds accepted when decoding a record, so that a crafted record
// cannot make key derivation run for minutes or exhaust memory.
const (
	maxArgonIterations = 16
	maxArgonMemoryKiB  = 1024 * 1024
	maxArgonThreads    = 64
	maxPBKDF2Iter      = 10_000_000
)

// Record is the serialized form of a sealed value.
type Record struct {
	Version    int    `json:"v"`
	Cipher     string `json:"cipher"`
	KDF        string `json:"kdf"`
	Iterations uint32 `json:"iter"`
	MemoryKiB  uint32 `json:"mem,omitempty"`
	Threads    uint8  `json:"par,omitempty"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
	Ciphertext string `json:"ct"`
}

// Codec holds the key derivation parameters used for new records.
// Decrypt always honours the parameters stored in the record itself.
type Codec struct {
	KDF        string
	Iterations uint32
	MemoryKiB  uint32
	Threads    uint8
}

// DefaultCodec derives keys with Argon2id (t=1, 64 MiB, 4 lanes).
var DefaultCodec = Codec{KDF: KDFArgon2id, Iterations: 1, MemoryKiB: 64 * 1024, Threads: 4}

// PBKDF2Codec derives keys with PBKDF2-HMAC-SHA256.
var PBKDF2Codec = Codec{KDF: KDFPBKDF2SHA256, Iterations: 600_000}

// Encrypt seals plaintext with DefaultCodec.
func Encrypt(password, plaintext string) (string, error) {
	return DefaultCodec.Encrypt(password, plaintext)
}

// Decrypt opens a record produced by any Codec.
func Decrypt(password, record string) (string, error) {
	return DefaultCodec.Decrypt(password, record)
}

// Encrypt derives a key from password with a fresh random salt, seals
// plaintext under AES-256-GCM with a fresh nonce and returns the JSON record.
// Two calls with the same input never produce the same record.
//
// The derived key is wiped before Encrypt returns. The record stores the
// KDF name and cost parameters of c, so it can be opened by any Codec.
//
// Parameters:
//   - password: the master password; may be empty.
//   - plaintext: the data to seal, usually the serialized entry list.
//
// Returns:
//   - record: the JSON record (cipher, kdf, params, salt, nonce, ciphertext).
//   - err: non-nil only if the system random source fails.
//
// Example:
//
//	record, err := cryptox.DefaultCodec.Encrypt("s3cret", `[{"title":"Bank"}]`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	plain, err := cryptox.Decrypt("s3cret", record)
//	if err != nil {
//	    log.Fatal(err) // wrong password or damaged record
//	}
//	fmt.Println(plain)
func (c Codec) Encrypt(password, plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cannot generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cannot generate nonce: %w", err)
	}

	rec := Record{
		Version:    RecordVersion,
		Cipher:     CipherAES256GCM,
		KDF:        c.KDF,
		Iterations: c.Iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(nonce),
	}
	if c.KDF == KDFArgon2id {
		rec.MemoryKiB = c.MemoryKiB
		rec.Threads = c.Threads
	}
	if err := rec.validate(); err != nil {
		return "", fmt.Errorf("invalid codec parameters: %w", err)
	}

	key := rec.deriveKey([]byte(password), salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	rec.Ciphertext = base64.StdEncoding.EncodeToString(aesgcm.Seal(nil, nonce, []byte(plaintext), nil))

	out, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("cannot encode record: %w", err)
	}
	return string(out), nil
}

// Decrypt parses the record, re-derives the key and opens the ciphertext.
// Every failure is reported as ErrAuthentication; no plaintext is returned
// unless the GCM tag verifies.
//
// Parameters:
//   - password: the password the record was sealed with.
//   - record: a JSON record produced by Encrypt.
//
// Returns:
//   - plaintext: the original data, only when authentication succeeds.
//   - err: ErrAuthentication for a wrong password, a tampered ciphertext,
//     unknown cipher or KDF names, or cost parameters above the accepted
//     bounds.
func (c Codec) Decrypt(password, record string) (string, error) {
	var rec Record
	if err := json.Unmarshal([]byte(record), &rec); err != nil {
		return "", fmt.Errorf("%w: malformed record", ErrAuthentication)
	}
	if err := rec.validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	salt, err := base64.StdEncoding.DecodeString(rec.Salt)
	if err != nil || len(salt) == 0 {
		return "", fmt.Errorf("%w: bad salt", ErrAuthentication)
	}
	nonce, err := base64.StdEncoding.DecodeString(rec.IV)
	if err != nil || len(nonce) != nonceSize {
		return "", fmt.Errorf("%w: bad iv", ErrAuthentication)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrAuthentication)
	}

	key := rec.deriveKey([]byte(password), salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrAuthentication
	}
	return string(plaintext), nil
}

func (r Record) validate() error {
	if r.Version != RecordVersion {
		return fmt.Errorf("unsupported record version %d", r.Version)
	}
	if r.Cipher != CipherAES256GCM {
		return fmt.Errorf("unsupported cipher %q", r.Cipher)
	}
	switch r.KDF {
	case KDFArgon2id:
		if r.Iterations == 0 || r.Iterations > maxArgonIterations {
			return fmt.Errorf("argon2id iterations out of range: %d", r.Iterations)
		}
		if r.MemoryKiB < 8*uint32(r.Threads) || r.MemoryKiB > maxArgonMemoryKiB {
			return fmt.Errorf("argon2id memory out of range: %d", r.MemoryKiB)
		}
		if r.Threads == 0 || r.Threads > maxArgonThreads {
			return fmt.Errorf("argon2id parallelism out of range: %d", r.Threads)
		}
	case KDFPBKDF2SHA256:
		if r.Iterations == 0 || r.Iterations > maxPBKDF2Iter {
			return fmt.Errorf("pbkdf2 iterations out of range: %d", r.Iterations)
		}
	default:
		return fmt.Errorf("unsupported kdf %q", r.KDF)
	}
	return nil
}

func (r Record) deriveKey(password, salt []byte) []byte {
	if r.KDF == KDFPBKDF2SHA256 {
		return pbkdf2.Key(password, salt, int(r.Iterations), keySize, sha256.New)
	}
	return argon2.IDKey(password, salt, r.Iterations, r.MemoryKiB, r.Threads, keySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cannot create aes block cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cannot create gcm cipher: %w", err)
	}
	return aesgcm, nil
}
