package gateway

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eexxio/TW/pkg/identity"
	"github.com/eexxio/TW/pkg/middleware"
)

// contextKeyPrincipal はGinコンテキストに認証済みPrincipalを格納するためのキー。
const contextKeyPrincipal = "principal"

// authenticate は2つの認証方式を束ねたGinミドルウェアを返す。
// Bearerトークンがあれば常にJWT検証を行い、無い場合のみサービスアカウント
// ヘッダーを確認する。方式間のフォールバックは行わず、1リクエストにつき
// 試行する方式は1つのみ。どの資格情報も無ければ401を返す。
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); found {
			s.authenticateWithJWT(c, token)
			return
		}

		if encoded := c.GetHeader(s.cfg.IAM.Header); encoded != "" && s.cfg.IAM.Enabled {
			s.authenticateWithServiceAccount(c, encoded)
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "認証情報が必要です"})
	}
}

// authenticateWithJWT はBearerトークンを検証してPrincipalを解決する。
// 期限切れ・署名不正・形式不正は区別せず、同一の401応答を返す。
func (s *Server) authenticateWithJWT(c *gin.Context, token string) {
	p, err := middleware.ParseJWT(s.cfg.JWTSecret, token)
	if err != nil {
		log.Printf("JWT検証に失敗: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "認証情報が無効です"})
		return
	}

	s.admit(c, p)
}

// authenticateWithServiceAccount はサービスアカウントキーを検証してPrincipalを解決する。
// 数値IDはキーのメールアドレスから決定的に導出する。
func (s *Server) authenticateWithServiceAccount(c *gin.Context, encoded string) {
	info := s.accounts.Resolve(encoded)
	if !info.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "認証情報が無効です"})
		return
	}

	s.admit(c, identity.Principal{
		ID:    identity.StableID(info.Email),
		Email: info.Email,
		Role:  info.Role,
	})
}

// admit は認証に成功したPrincipalをコンテキストと転送用ヘッダーに反映し、
// 後続の処理へ進める。呼び出し元が設定した識別ヘッダーは必ず上書きされる。
func (s *Server) admit(c *gin.Context, p identity.Principal) {
	c.Set(contextKeyPrincipal, p)
	p.SetForwardHeaders(c.Request.Header)
	c.Next()
}

// principalFrom はGinコンテキストから認証済みPrincipalを取得する。
// authenticateミドルウェアが事前に適用されている必要がある。
func principalFrom(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(contextKeyPrincipal)
	if !ok {
		return identity.Principal{}, false
	}
	p, ok := v.(identity.Principal)
	return p, ok
}
