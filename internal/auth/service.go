// Package auth turns a uniqueness proof into a session token. Proof
// acquisition and on-chain verification are the collaborator's job; this
// side checks shape, hashes the nullifier and binds it to an account.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"numa-sim/internal/accounts"
	"numa-sim/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidProof = errors.New("invalid verification proof")

type Service struct {
	accounts *accounts.Service
	issuer   string
	secret   []byte
	ttl      time.Duration
}

func NewService(accountSvc *accounts.Service, issuer string, secret []byte, ttl time.Duration) *Service {
	return &Service{accounts: accountSvc, issuer: issuer, secret: secret, ttl: ttl}
}

type Proof struct {
	NullifierHash string `json:"nullifier_hash"`
	MerkleRoot    string `json:"merkle_root"`
	Proof         string `json:"proof"`
}

// Verify accepts a uniqueness proof and returns a signed session token for
// the bound account, creating it on first sight.
func (s *Service) Verify(p Proof) (string, model.Account, bool, error) {
	if strings.TrimSpace(p.NullifierHash) == "" || strings.TrimSpace(p.MerkleRoot) == "" || strings.TrimSpace(p.Proof) == "" {
		return "", model.Account{}, false, ErrInvalidProof
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(p.NullifierHash))))
	acc, created, err := s.accounts.EnsureVerified(hex.EncodeToString(sum[:]))
	if err != nil {
		return "", model.Account{}, false, err
	}
	token, err := s.signToken(acc.ID)
	if err != nil {
		return "", model.Account{}, false, err
	}
	return token, acc, created, nil
}

func (s *Service) signToken(accountID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates a session token and returns the account id.
func (s *Service) ParseToken(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("invalid claims")
	}
	return claims.Subject, nil
}
