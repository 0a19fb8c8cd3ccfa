package auth

import "golang.org/x/crypto/bcrypt"

// HashAPIKey hashes a plaintext operator key with the configured cost.
// The hash, not the key, is what belongs in configuration.
func HashAPIKey(key string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyAPIKey verifies a presented key against its hashed value.
func VerifyAPIKey(hashed, presented string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(presented))
}
