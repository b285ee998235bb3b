// Package secrets generates bearer secrets and resolves them to roles.
package secrets

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/captain-draft/internal/dependencies/random"
	"github.com/mcoot/captain-draft/internal/model"
)

const (
	// TokenLength is the length of every id and secret handed out
	TokenLength = 16

	// TokenAlphabet is the character set tokens are drawn from
	TokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Generator produces opaque tokens
type Generator struct {
	random random.Random
}

// NewGenerator creates a Generator backed by the given source
func NewGenerator(random random.Random) *Generator {
	return &Generator{random: random}
}

// Token returns a new token of TokenLength characters
func (g *Generator) Token() string {
	return g.random.String(TokenLength, TokenAlphabet)
}

// Credentials are the secrets of one session, captains in creation order
type Credentials struct {
	HostSecret      string
	SpectatorSecret string
	Captains        []model.Captain
}

// Resolve maps a presented secret to a role. The host secret is checked first,
// then the spectator secret, then each captain in creation order.
func Resolve(creds Credentials, presented string) (model.Role, error) {
	if presented == "" {
		return model.Role{}, model.ErrSecretNotFound
	}
	if equal(presented, creds.HostSecret) {
		return model.HostRole(), nil
	}
	if equal(presented, creds.SpectatorSecret) {
		return model.SpectatorRole(), nil
	}
	for _, captain := range creds.Captains {
		if equal(presented, captain.Secret) {
			return model.CaptainRole(captain.ID), nil
		}
	}
	return model.Role{}, model.ErrSecretNotFound
}

func equal(presented, secret string) bool {
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1
}

// HashSecret hashes a secret for storage alongside archived results
func HashSecret(secret string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	return hash, nil
}

// VerifySecret reports whether secret matches a hash from HashSecret
func VerifySecret(hash []byte, secret string) bool {
	if len(hash) == 0 || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}
