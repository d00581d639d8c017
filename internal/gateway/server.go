package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eexxio/TW/internal/serviceaccount"
	"github.com/eexxio/TW/pkg/middleware"
)

// Server はAPI Gatewayサービスの HTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に読み込んだ設定。
	cfg Config
	// accounts はサービスアカウントキーのバリデータ。
	accounts *serviceaccount.Resolver
	// users はユーザーサービスへの問い合わせクライアント。
	users *usersClient
	// ownership は予約リソースの所有者を解決するリゾルバ。
	ownership *ownershipResolver
	// proxyClient は内部サービスへの転送に使用するHTTPクライアント。
	proxyClient *http.Client
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(cfg Config) *Server {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.FrontendURL}, []string{cfg.IAM.Header}))

	s := &Server{
		router: router,
		cfg:    cfg,
		accounts: serviceaccount.NewResolver(serviceaccount.RolePolicy{
			AdminAccounts: cfg.IAM.AdminAccounts,
			UserAccounts:  cfg.IAM.UserAccounts,
		}),
		users:     newUsersClient(cfg.ServiceURLs.Users),
		ownership: newOwnershipResolver(cfg.ServiceURLs.Bookings),
		proxyClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	s.setupRoutes()

	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.cfg.Port))
}

// setupRoutes はルートポリシーテーブルに従ってAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 認証エンドポイント（転送せずgateway自身が処理する）
	auth := s.router.Group("/auth")
	{
		auth.POST("/login", s.handleLogin())
		auth.GET("/me", s.handleCurrentUser())
	}

	// ポリシーテーブルに列挙されたルートのみ内部サービスへ転送する
	for _, rp := range routePolicies {
		var handlers []gin.HandlerFunc
		if rp.AuthRequired {
			handlers = append(handlers, s.authenticate(), s.authorize(rp))
		}
		handlers = append(handlers, s.handleProxy(s.serviceURL(rp.Service)))

		for _, method := range rp.Methods {
			s.router.Handle(method, rp.Path, handlers...)
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})

	// テーブルに無いパスは転送しない（フェイルクローズ）
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ルートが見つかりません"})
	})
}

// serviceURL はポリシーの転送先サービス名からベースURLを引く。
func (s *Server) serviceURL(service backendService) string {
	switch service {
	case serviceUsers:
		return s.cfg.ServiceURLs.Users
	case serviceMovies:
		return s.cfg.ServiceURLs.Movies
	case serviceBookings:
		return s.cfg.ServiceURLs.Bookings
	}
	return ""
}
