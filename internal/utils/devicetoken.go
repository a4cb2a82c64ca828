package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Device tokens were originally stored as bare hex SHA-256 digests; current
// deployments use bcrypt. The stored string is resolved into exactly one of the
// two variants at verification time instead of prefix-sniffing at call sites.

var ErrTokenMismatch = errors.New("device token mismatch")

type hashFormat int

const (
	currentHash hashFormat = iota
	legacyHash
)

// classifyHash resolves a stored hash string into its format. bcrypt hashes
// carry a "$2a$"/"$2b$" prefix; 64 hex characters is the legacy SHA-256 form.
func classifyHash(stored string) (hashFormat, error) {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return currentHash, nil
	}
	if len(stored) == 64 {
		if _, err := hex.DecodeString(stored); err == nil {
			return legacyHash, nil
		}
	}
	return 0, fmt.Errorf("unrecognized device token hash format")
}

// HashDeviceToken produces the current-format (bcrypt) hash for a token.
func HashDeviceToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash device token: %w", err)
	}
	return string(hash), nil
}

// VerifyDeviceToken checks token against the stored hash. needsUpgrade is true
// when the match succeeded against a legacy hash, signalling the caller to
// rehash and persist the current format.
func VerifyDeviceToken(stored, token string) (needsUpgrade bool, err error) {
	format, err := classifyHash(stored)
	if err != nil {
		return false, err
	}
	switch format {
	case currentHash:
		if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(token)); err != nil {
			return false, ErrTokenMismatch
		}
		return false, nil
	default:
		sum := sha256.Sum256([]byte(token))
		if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(stored)) != 1 {
			return false, ErrTokenMismatch
		}
		return true, nil
	}
}
