// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// リクエストごとの認証（JWT Bearerトークン / Googleサービスアカウントキー）、
// ルート別の認可（管理者限定・プロフィール所有権・予約所有権）、認証済み
// 識別情報の内部サービスへの伝播を担当する。外部からアクセス可能な唯一の
// サービスであり、セキュリティの境界線として機能する。
//
// 認可判定は静的なルートポリシーテーブルに基づき、ポリシーに無いパスは
// 転送されない。予約の所有権チェックのみ予約サービスへの外部呼び出しを伴い、
// 所有者を解決できない場合は拒否に倒す（フェイルクローズ）。
package gateway
