package gateway

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eexxio/TW/pkg/identity"
	"github.com/eexxio/TW/pkg/middleware"
)

// loginRequest はPOST /auth/loginのリクエストボディ。
type loginRequest struct {
	// Email はログインするユーザーのメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Password はログインするユーザーのパスワード。
	Password string `json:"password" binding:"required"`
}

// handleLogin は資格情報をユーザーサービスで検証し、JWTトークンを発行するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}

		user, err := s.users.validateCredentials(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			// 不一致と通信失敗を区別せず、同一の応答を返す
			log.Printf("ログインに失敗: email=%s: %v", req.Email, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "メールアドレスまたはパスワードが正しくありません"})
			return
		}

		role := identity.Role(user.Role)
		if !role.Valid() {
			role = identity.RoleUser
		}
		p := identity.Principal{ID: user.UserID, Email: user.Email, Role: role}

		token, err := middleware.GenerateJWT(s.cfg.JWTSecret, p, s.cfg.JWTExpiry)
		if err != nil {
			log.Printf("JWT生成エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"user_id":    p.ID,
			"email":      p.Email,
			"role":       p.Role,
			"expires_in": int64(s.cfg.JWTExpiry.Seconds()),
		})
	}
}

// handleCurrentUser はBearerトークンから現在のユーザー情報を返すハンドラを返す。
func (s *Server) handleCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証情報が必要です"})
			return
		}

		p, err := middleware.ParseJWT(s.cfg.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証情報が無効です"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user_id": p.ID,
			"email":   p.Email,
			"role":    p.Role,
		})
	}
}
