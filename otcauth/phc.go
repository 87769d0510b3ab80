package otcauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// HashPHC derives an Argon2id hash for secret and renders it in PHC string
// format, the on-disk representation spec.md §4.10 uses for whitelist
// entries.
func HashPHC(secret string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(secret), salt, Params.Time, Params.Memory, Params.Threads, Params.KeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, Params.Memory, Params.Time, Params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(hash)), nil
}

// parsePHC decodes a PHC-format Argon2id hash string into its tunables,
// salt, and derived key.
func parsePHC(phc string) (salt, key []byte, memory, time_ uint32, threads uint8, err error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("otcauth: malformed phc hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("otcauth: malformed phc version: %w", err)
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("otcauth: malformed phc params: %w", err)
	}

	b64 := base64.RawStdEncoding
	salt, err = b64.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("otcauth: malformed phc salt: %w", err)
	}
	key, err = b64.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("otcauth: malformed phc key: %w", err)
	}

	return salt, key, m, t, p, nil
}
