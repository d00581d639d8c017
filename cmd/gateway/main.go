// API Gatewayサービスのエントリポイント。
// JWT認証・サービスアカウント認証、ルート別の認可、内部サービスへの
// リクエスト転送を担当する。外部からアクセス可能な唯一のサービスであり、
// セキュリティの境界線となる。
package main

import (
	"log"

	"github.com/eexxio/TW/internal/gateway"
)

func main() {
	cfg := gateway.LoadConfig()
	server := gateway.NewServer(cfg)

	log.Printf("Gatewayサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("Gatewayサービスの起動に失敗: %v", err)
	}
}
