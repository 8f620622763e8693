package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrNoAdminSecret means create-admin has not been run yet.
var ErrNoAdminSecret = errors.New("admin password is not set, run: create-admin")

type Service struct {
	hmac       []byte
	secretFile string
}

func NewService(hmacSecret, secretFile string) *Service {
	return &Service{hmac: []byte(hmacSecret), secretFile: secretFile}
}

type Claims struct {
	Role string `json:"role"` // "admin"
	jwt.RegisteredClaims
}

// VerifyPassword checks a plaintext password against the bcrypt hash stored
// on disk.
func (s *Service) VerifyPassword(plaintext string) error {
	hash, err := os.ReadFile(s.secretFile)
	if err != nil {
		return ErrNoAdminSecret
	}
	hash = bytes.TrimSpace(hash)
	if len(hash) == 0 {
		return ErrNoAdminSecret
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext))
}

func (s *Service) IssueToken(role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mcq-platform",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.hmac)
}

func (s *Service) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.hmac, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return c, nil
}

// WriteAdminSecret bcrypt-hashes the password and writes it to the secret
// file (create-admin CLI).
func WriteAdminSecret(path, password string) error {
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, hash, 0o600)
}
