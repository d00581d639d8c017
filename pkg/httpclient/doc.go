// Package httpclient は内部サービスへのHTTP通信を行うクライアントを提供する。
//
// gatewayがユーザーサービスへの資格情報検証や予約サービスへの所有者照会を
// 行う際に使用する。コンテキストに認証済みPrincipalが設定されている場合は
// 識別ヘッダー（X-User-Id等）を自動的に付与し、サービス間の通信パターンを
// 統一する。
package httpclient
