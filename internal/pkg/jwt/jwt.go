package jwt

import (
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenTypeDevice marks tokens minted for tracking agents.
const TokenTypeDevice = "device"

type Service interface {
	GenerateDeviceToken(email string, role string) (token string, expiresAt int64, err error)
	ValidateDeviceToken(tokenString string) (email string, role string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	expiration time.Duration
	tokenAuth  *jwtauth.JWTAuth
	now        func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, expiration time.Duration) Service {
	return &JWTService{
		expiration: expiration,
		tokenAuth:  jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:        time.Now,
	}
}

// GenerateDeviceToken issues the long-lived bearer token an agent presents
// to the collector. The email and role claims must match every sample the
// agent uploads.
func (j *JWTService) GenerateDeviceToken(email string, role string) (token string, expiresAt int64, err error) {
	if email == "" || role == "" {
		return "", 0, fmt.Errorf("email and role are required")
	}
	expiresAt = j.now().Add(j.expiration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"email": email,
		"role":  role,
		"type":  TokenTypeDevice,
		"iat":   j.now().Unix(),
		"exp":   expiresAt,
	})
	return tokenString, expiresAt, err
}

// ValidateDeviceToken decodes a device token and returns its identity claims.
func (j *JWTService) ValidateDeviceToken(tokenString string) (email string, role string, err error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return "", "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TokenTypeDevice {
		return "", "", jwt.ErrInvalidJWT()
	}

	emailVal, ok := token.Get("email")
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}
	roleVal, ok := token.Get("role")
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}

	email, ok = emailVal.(string)
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}
	role, ok = roleVal.(string)
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}

	return email, role, nil
}
