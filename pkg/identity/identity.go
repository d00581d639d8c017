// Package identity はゲートウェイで解決されたリクエスト呼び出し元の
// 識別情報（Principal）を提供する。
//
// Principalは認証成功時にリクエストごとに生成され、認可判定と内部サービスへの
// 識別情報伝播に使用される。永続化はされず、リクエスト終了とともに破棄される。
package identity

import (
	"context"
	"hash/fnv"
	"net/http"
	"strconv"
)

// Role は認可判定に使用する呼び出し元のロール。
type Role string

const (
	// RoleAdmin はすべてのリソースへのアクセスが許可される管理者ロール。
	RoleAdmin Role = "ADMIN"
	// RoleUser は自身が所有するリソースのみアクセスが許可される一般ユーザーロール。
	RoleUser Role = "USER"
)

// Valid はロールが定義済みのものであるかを返す。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// 内部サービスへ認証済みの識別情報を伝播するためのHTTPヘッダーキー。
const (
	// HeaderUserID はユーザーの数値IDを伝播するヘッダーキー。
	HeaderUserID = "X-User-Id"
	// HeaderUserEmail はユーザーのメールアドレスを伝播するヘッダーキー。
	HeaderUserEmail = "X-User-Email"
	// HeaderUserRole はユーザーのロールを伝播するヘッダーキー。
	HeaderUserRole = "X-User-Role"
)

// Principal は1リクエストの間だけ有効な、認証済み呼び出し元の識別情報。
// 認証器がリクエストごとに生成し、生成後は変更されない。
type Principal struct {
	// ID は呼び出し元の数値識別子。JWTクレームから取得するか、
	// サービスアカウントの場合はメールアドレスのハッシュ値から導出する。
	ID int64
	// Email は呼び出し元のメールアドレス。リソース所有権の比較に使用する。
	Email string
	// Role は認可判定に使用するロール。
	Role Role
}

// SetForwardHeaders はPrincipalの3フィールドを転送用ヘッダーに設定する。
// なりすまし防止のため、呼び出し元が設定した既存の値は常に上書きする。
func (p Principal) SetForwardHeaders(h http.Header) {
	h.Set(HeaderUserID, strconv.FormatInt(p.ID, 10))
	h.Set(HeaderUserEmail, p.Email)
	h.Set(HeaderUserRole, string(p.Role))
}

// StableID はサービスアカウントのメールアドレスから決定的な数値IDを導出する。
// FNV-1a 32bitハッシュを64bit整数へ拡張するため、結果は常に非負となる。
func StableID(email string) int64 {
	h := fnv.New32a()
	h.Write([]byte(email))
	return int64(h.Sum32())
}

// contextKey はコンテキストキーの型。
type contextKey struct{}

// principalKey はコンテキストにPrincipalを格納するためのキー。
var principalKey contextKey

// WithPrincipal はコンテキストにPrincipalを設定する。
// サービス間通信時に識別情報を伝播するために使用する。
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext はコンテキストからPrincipalを取り出す。
// 設定されていない場合は第2戻り値がfalseとなる。
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
