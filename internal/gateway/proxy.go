package gateway

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleProxy は受信リクエストを指定サービスへ転送するハンドラを返す。
// パス・クエリ・ヘッダーはそのまま引き継ぐ。認証済みルートでは転送前に
// authenticateが識別ヘッダーを上書きしているため、呼び出し元が詐称した
// X-User-*ヘッダーが内部サービスへ届くことはない。
func (s *Server) handleProxy(baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := baseURL + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, proxyURL, c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "プロキシリクエストの作成に失敗しました"})
			return
		}
		req.Header = c.Request.Header.Clone()

		resp, err := s.proxyClient.Do(req)
		if err != nil {
			log.Printf("プロキシエラー: url=%s: %v", proxyURL, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "内部サービスとの通信に失敗しました"})
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "レスポンスの読み取りに失敗しました"})
			return
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/json"
		}

		// 内部サービスのステータスコードをそのまま返す
		c.Data(resp.StatusCode, contentType, body)
	}
}
