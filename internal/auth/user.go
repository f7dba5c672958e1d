package auth

import (
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	// Allowed to create and Delete DB
	RoleSuperuser Role = "superuser"
	// Read / Write on allowed DB
	RoleUser Role = "user"
	// Readonly on allowed DB
	RoleGuest Role = "guest"
)

type User struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Role     Role     `json:"role"`
	AccessDB []string `json:"access_db"`
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
