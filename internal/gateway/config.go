package gateway

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はGatewayサービスの起動時設定。
// 起動後は変更されず、すべてのリクエストから同期なしで共有される。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// JWTSecret はJWT署名用の秘密鍵。
	JWTSecret string
	// JWTExpiry は発行するトークンの有効期間。
	JWTExpiry time.Duration
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string
	// ServiceURLs は内部サービスのURL。
	ServiceURLs ServiceURLConfig
	// IAM はサービスアカウント認証方式の設定。
	IAM IAMConfig
}

// ServiceURLConfig は内部サービスのURL設定。
type ServiceURLConfig struct {
	// Users はユーザーサービスのベースURL。
	Users string
	// Movies は映画サービスのベースURL。
	Movies string
	// Bookings は予約サービスのベースURL。
	Bookings string
}

// IAMConfig はサービスアカウント認証方式の設定。
type IAMConfig struct {
	// Enabled はサービスアカウント認証を受け付けるか。
	Enabled bool
	// Header はエンコード済みキーを運ぶHTTPヘッダー名。
	Header string
	// AdminAccounts はADMINロールを与えるアカウント名の一覧。
	AdminAccounts []string
	// UserAccounts はUSERロールを与えるアカウント名の一覧。
	UserAccounts []string
}

// LoadConfig は環境変数から設定を読み込む。
// JWT署名鍵はJWT_SECRET、またはJWT_SECRET_FILEで指定したファイルから読み込む。
func LoadConfig() Config {
	secret := os.Getenv("JWT_SECRET")
	if secretFile := os.Getenv("JWT_SECRET_FILE"); secret == "" && secretFile != "" {
		b, err := os.ReadFile(secretFile)
		if err != nil {
			log.Printf("JWT署名鍵ファイルの読み込みに失敗: %v", err)
		} else {
			secret = strings.TrimSpace(string(b))
		}
	}
	if secret == "" {
		secret = "dev-secret-key"
	}

	expiry := 24 * time.Hour
	if h := os.Getenv("JWT_EXPIRY_HOURS"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n > 0 {
			expiry = time.Duration(n) * time.Hour
		} else {
			log.Printf("JWT_EXPIRY_HOURS=%q を解釈できないため既定値24時間を使用します", h)
		}
	}

	return Config{
		Port:        getEnvOr("PORT", "8080"),
		JWTSecret:   secret,
		JWTExpiry:   expiry,
		FrontendURL: getEnvOr("FRONTEND_URL", "http://localhost:3000"),
		ServiceURLs: ServiceURLConfig{
			Users:    getEnvOr("USERS_URL", "http://localhost:8081"),
			Movies:   getEnvOr("MOVIES_URL", "http://localhost:8082"),
			Bookings: getEnvOr("BOOKINGS_URL", "http://localhost:8083"),
		},
		IAM: IAMConfig{
			Enabled:       os.Getenv("IAM_AUTH_ENABLED") == "true",
			Header:        getEnvOr("IAM_HEADER", "X-Google-Service-Account"),
			AdminAccounts: splitList(os.Getenv("IAM_ADMIN_ACCOUNTS")),
			UserAccounts:  splitList(os.Getenv("IAM_USER_ACCOUNTS")),
		},
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// splitList はカンマ区切りの文字列を要素のリストに変換する。
// 空要素は取り除く。
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
