// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアと
// JWTトークンの発行・検証を提供する。
//
// gatewayサービスが認証時に使用するほか、内部サービスがトークンを
// 再検証する場合にも同じ実装を共有する。パニックリカバリ、CORS設定、
// リクエストID付与など、サービス共通のミドルウェアを含む。
package middleware
