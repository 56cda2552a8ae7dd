package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 定义访问令牌的负载；UID 为用户主键
type Claims struct {
	UID      int64  `json:"uid"`
	Nickname string `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}

// SignAccessToken 生成访问令牌（签发属于账号服务，这里仅供种子工具与单测使用）
func SignAccessToken(uid int64, nickname string, ttl time.Duration, secret string) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := Claims{
		UID:      uid,
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(uid, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	return s, exp, err
}

// ParseAndValidate 解析并校验访问令牌
func ParseAndValidate(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// Verifier 供长连接通道做连接期身份校验的窄接口
type Verifier interface {
	Verify(tokenStr string) (int64, error)
}

// JWTVerifier 基于 HS256 共享密钥实现 Verifier
type JWTVerifier struct {
	Secret string
}

func (v JWTVerifier) Verify(tokenStr string) (int64, error) {
	claims, err := ParseAndValidate(tokenStr, v.Secret)
	if err != nil {
		return 0, err
	}
	return claims.UID, nil
}
