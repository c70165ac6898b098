package auth

import "golang.org/x/crypto/bcrypt"

// dummyHash is compared against when no account matches the email, so login
// latency does not reveal whether an address is registered.
const dummyHash = "$2a$12$C6UzMDM.H6dfI/f/IKxGhuB8W0sBePiL7aHyQGJGyMDkTzVxPAm2q"

// HashPassword hashes a plaintext password with the configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// CompareDummy burns the same bcrypt work as a real comparison and always
// fails.
func CompareDummy(plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}
