package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eexxio/TW/pkg/identity"
)

// Claims はJWTトークンのクレーム（ペイロード）を表す。
// ユーザーID・メールアドレス・ロールをサービス間で伝播するために使用する。
type Claims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの数値識別子。
	UserID int64 `json:"user_id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Role はユーザーのロール（ADMIN / USER）。
	Role string `json:"role"`
}

// tokenIssuer はgatewayが発行するトークンのIssuerクレーム値。
const tokenIssuer = "cinema-gateway"

// ErrInvalidToken はトークン検証の失敗を表すエラー。
// 署名不正・形式不正・期限切れ・クレーム欠落を区別せず、検証内部の情報を
// 呼び出し元へ漏らさないよう単一のエラーに縮退させる。
var ErrInvalidToken = errors.New("トークンが無効です")

// GenerateJWT は認証済みユーザー情報からJWTトークンを生成する。
// gatewayサービスがログイン成功後に呼び出す。
func GenerateJWT(secret string, p identity.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		UserID: p.ID,
		Email:  p.Email,
		Role:   string(p.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ParseJWT はJWTトークンを検証し、クレームからPrincipalを取り出す。
// 検証に失敗した場合は理由を問わずErrInvalidTokenを返す。
func ParseJWT(secret, tokenString string) (identity.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return identity.Principal{}, ErrInvalidToken
	}

	role := identity.Role(claims.Role)
	if claims.Email == "" || !role.Valid() {
		return identity.Principal{}, ErrInvalidToken
	}

	return identity.Principal{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  role,
	}, nil
}
