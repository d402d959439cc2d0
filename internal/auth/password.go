package auth

import "golang.org/x/crypto/bcrypt"

// PasswordCost matches the cost the service has always stored hashes with.
const PasswordCost = 10

// HashPassword returns a salted bcrypt hash. Each call uses a fresh salt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password produced hash. A malformed hash is a mismatch.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
