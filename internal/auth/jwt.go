package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 30 * 24 * time.Hour

// Identity is what a valid token says about the caller.
type Identity struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

func (i Identity) IsCounselor() bool  { return i.Role == RoleCounselor }
func (i Identity) IsIndividual() bool { return i.Role == RoleIndividual }

type claims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

func GenerateToken(secret []byte, id Identity) (string, error) {
	now := time.Now()
	c := claims{
		UserID: id.UserID,
		Role:   id.Role,
		Name:   id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(secret)
}

func ParseToken(secret []byte, tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if c.UserID == 0 || (c.Role != RoleIndividual && c.Role != RoleCounselor) {
		return Identity{}, errors.New("token is missing user_id or role")
	}
	return Identity{UserID: c.UserID, Role: c.Role, Name: c.Name}, nil
}
