// Package token 提供了用于签发和验证聊天会话 JSON Web Tokens (JWT) 的功能。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken 表示 token 签名不匹配、已过期或格式错误。
var ErrInvalidToken = errors.New("invalid token")

// JWTManager 负责管理聊天会话 token 的生成和验证。
type JWTManager struct {
	secretKey  []byte
	sessionDur time.Duration
}

// SessionClaims 在标准声明之外携带聊天会话 id。
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager。expireHours 非正数时为 24 小时。
func NewJWTManager(secret string, expireHours int) *JWTManager {
	if expireHours <= 0 {
		expireHours = 24
	}
	return &JWTManager{
		secretKey:  []byte(secret),
		sessionDur: time.Duration(expireHours) * time.Hour,
	}
}

// IssueSession 生成新的会话 id 并返回签名后的 token。
func (m *JWTManager) IssueSession() (token string, sessionID string, err error) {
	sessionID = uuid.NewString()
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionDur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	return token, sessionID, err
}

// VerifySession 验证 token 并返回其中的会话 id。
func (m *JWTManager) VerifySession(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}
