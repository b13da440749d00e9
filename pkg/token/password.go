package token

import "golang.org/x/crypto/bcrypt"

// MinPasswordCost is the cheapest bcrypt cost, for test doubles.
const MinPasswordCost = bcrypt.MinCost

// HashPassword returns the bcrypt hash of password. Passwords longer than
// 72 bytes are rejected.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches a HashPassword hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
