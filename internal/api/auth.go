package api

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"huddle/internal/types"
)

const (
	defaultJwtExpiration = time.Hour * 24
	tokenCookieKey       = "token"

	accountIdClaim = "account-id"
	emailClaim     = "email"
	expClaim       = "exp"
)

type contextKey string

const sessionKey contextKey = "session"

// Session identifies an authenticated caller. Email doubles as the user id
// on connection and message records.
type Session struct {
	AccountId int
	Email     string
}

func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey).(Session)
	return sess, ok
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}

func (s *HuddleApp) createJwtForSession(user types.User, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		accountIdClaim: user.Id,
		emailClaim:     user.EmailAddress,
		expClaim:       time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *HuddleApp) verifyToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

func (s *HuddleApp) sessionFromToken(tokenString string) (Session, error) {
	token, err := s.verifyToken(tokenString)
	if err != nil {
		return Session{}, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, fmt.Errorf("invalid token claims")
	}

	accountId, ok := claims[accountIdClaim].(float64)
	if !ok {
		return Session{}, fmt.Errorf("invalid account id claim")
	}

	email, ok := claims[emailClaim].(string)
	if !ok || email == "" {
		return Session{}, fmt.Errorf("invalid email claim")
	}

	return Session{AccountId: int(accountId), Email: email}, nil
}
