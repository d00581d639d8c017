package gateway

import (
	"log"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eexxio/TW/pkg/identity"
)

// authzKind はルートに適用する認可チェックの種類。
type authzKind int

const (
	// authzNone は認証以外の追加チェックを行わない。
	authzNone authzKind = iota
	// authzAdminOnly はADMINロールのみ許可する。
	authzAdminOnly
	// authzUserOwnership はADMIN、またはパスパラメータのメールアドレスが
	// 本人のメールアドレスと一致する場合のみ許可する。
	authzUserOwnership
	// authzResourceOwnership はADMIN、またはリソースの所有者が本人である
	// 場合のみ許可する。所有者の解決に外部サービスへの問い合わせを伴う。
	authzResourceOwnership
)

// backendService はポリシーの転送先となる内部サービスの識別子。
type backendService int

const (
	// serviceUsers はユーザーサービス。
	serviceUsers backendService = iota
	// serviceMovies は映画サービス。
	serviceMovies
	// serviceBookings は予約サービス。
	serviceBookings
)

// routePolicy は保護対象ルート1件分の認可ポリシー。
type routePolicy struct {
	// Methods は対象のHTTPメソッド。
	Methods []string
	// Path はGinのルーティングパターン。
	Path string
	// Service は転送先の内部サービス。
	Service backendService
	// AuthRequired は認証を要求するか。falseのルートは公開される。
	AuthRequired bool
	// Kind は適用する認可チェックの種類。
	Kind authzKind
	// OwnerParam はauthzUserOwnershipで比較するパスパラメータ名。
	OwnerParam string
	// Resource はauthzResourceOwnershipの対象リソース種別。
	Resource resourceKind
}

// routePolicies は全ルートの静的ポリシーテーブル。起動時に登録され、以降は変更されない。
// ここに列挙されていないパスへのリクエストは内部サービスへ転送されない。
var routePolicies = []routePolicy{
	// 映画情報の閲覧は公開
	{Methods: []string{http.MethodGet}, Path: "/api/movies", Service: serviceMovies},
	{Methods: []string{http.MethodGet}, Path: "/api/movies/*path", Service: serviceMovies},

	// ユーザー登録は公開
	{Methods: []string{http.MethodPost}, Path: "/users/create", Service: serviceUsers},

	// 映画の管理はADMINのみ
	{Methods: []string{http.MethodPost}, Path: "/api/movies", Service: serviceMovies, AuthRequired: true, Kind: authzAdminOnly},
	{Methods: []string{http.MethodPut, http.MethodDelete}, Path: "/api/movies/*path", Service: serviceMovies, AuthRequired: true, Kind: authzAdminOnly},

	// ユーザー管理はADMINのみ
	{Methods: []string{http.MethodDelete}, Path: "/users/delete/:email", Service: serviceUsers, AuthRequired: true, Kind: authzAdminOnly},
	{Methods: []string{http.MethodGet}, Path: "/users/filter", Service: serviceUsers, AuthRequired: true, Kind: authzAdminOnly},
	{Methods: []string{http.MethodGet}, Path: "/users/sort", Service: serviceUsers, AuthRequired: true, Kind: authzAdminOnly},

	// プロフィール更新は本人（またはADMIN）のみ
	{Methods: []string{http.MethodPut}, Path: "/users/update/:email", Service: serviceUsers, AuthRequired: true, Kind: authzUserOwnership, OwnerParam: "email"},

	// 認証済みユーザーの操作
	{Methods: []string{http.MethodGet}, Path: "/users", Service: serviceUsers, AuthRequired: true},
	{Methods: []string{http.MethodGet}, Path: "/users/search", Service: serviceUsers, AuthRequired: true},

	// 予約の操作は所有権チェック付き
	{Methods: []string{http.MethodGet, http.MethodPost}, Path: "/api/bookings", Service: serviceBookings, AuthRequired: true, Kind: authzResourceOwnership, Resource: resourceBooking},
	{Methods: []string{http.MethodGet, http.MethodPut, http.MethodDelete}, Path: "/api/bookings/*path", Service: serviceBookings, AuthRequired: true, Kind: authzResourceOwnership, Resource: resourceBooking},
}

// 予約パスの形状判定パターン。
var (
	// bookingByIDPattern は予約ID指定のパス形状。
	bookingByIDPattern = regexp.MustCompile(`^/api/bookings/(\d+)$`)
	// bookingByUserPattern はユーザーID指定のパス形状。
	bookingByUserPattern = regexp.MustCompile(`^/api/bookings/user/(\d+)$`)
)

// authorize はルートポリシーに基づく認可判定を行うGinミドルウェアを返す。
// authenticateの後段に置くこと。認可に失敗したリクエストは403で終端し、
// 判定は1リクエストにつき1回で再試行しない。
func (s *Server) authorize(rp routePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok {
			// authenticateが先に適用されていれば到達しない
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "認証情報が必要です"})
			return
		}

		if !s.decide(c, rp, p) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "この操作を行う権限がありません"})
			return
		}

		c.Next()
	}
}

// decide はポリシー種別ごとの認可判定を行う。
// 所有権の解決以外に副作用は無く、同一の入力に対して常に同じ結果を返す。
func (s *Server) decide(c *gin.Context, rp routePolicy, p identity.Principal) bool {
	switch rp.Kind {
	case authzAdminOnly:
		if p.Role != identity.RoleAdmin {
			log.Printf("認可拒否: ADMIN限定ルートへのアクセス: path=%s, role=%s", c.Request.URL.Path, p.Role)
			return false
		}
		return true

	case authzUserOwnership:
		// ADMINは任意のプロフィールを更新できる
		if p.Role == identity.RoleAdmin {
			return true
		}
		if c.Param(rp.OwnerParam) != p.Email {
			log.Printf("認可拒否: 本人以外のプロフィール操作: path=%s, email=%s", c.Request.URL.Path, p.Email)
			return false
		}
		return true

	case authzResourceOwnership:
		return s.decideResourceOwnership(c, rp.Resource, p)

	default:
		// authzNoneは認証のみを要求する
		return true
	}
}

// decideResourceOwnership はリソースの所有権に基づく認可判定を行う。
// 予約リソースで認識するパス形状は3種類: 予約ID指定・ユーザーID指定・一覧。
// いずれにも一致しないパスは許可しない（フェイルクローズ）。
func (s *Server) decideResourceOwnership(c *gin.Context, resource resourceKind, p identity.Principal) bool {
	// ADMINはすべての予約にアクセスできる
	if p.Role == identity.RoleAdmin {
		return true
	}

	path := c.Request.URL.Path

	// 予約ID指定: 所有者を予約サービスへ問い合わせて本人確認する
	if m := bookingByIDPattern.FindStringSubmatch(path); m != nil {
		owner, ok := s.ownership.ownerOf(c.Request.Context(), resource, m[1])
		if !ok {
			// 所有者を解決できない場合は許可に倒さない
			log.Printf("認可拒否: 予約の所有者を解決できません: booking_id=%s", m[1])
			return false
		}
		if owner != p.ID {
			log.Printf("認可拒否: 本人以外の予約へのアクセス: booking_id=%s, user_id=%d", m[1], p.ID)
			return false
		}
		return true
	}

	// ユーザーID指定: パスのユーザーIDが本人であること
	if m := bookingByUserPattern.FindStringSubmatch(path); m != nil {
		pathUserID, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || pathUserID != p.ID {
			log.Printf("認可拒否: 本人以外のユーザーの予約一覧へのアクセス: path=%s, user_id=%d", path, p.ID)
			return false
		}
		return true
	}

	// 一覧取得と新規作成は認証済みであれば許可する
	if path == "/api/bookings" &&
		(c.Request.Method == http.MethodGet || c.Request.Method == http.MethodPost) {
		return true
	}

	// 認識できないパス形状は許可しない
	log.Printf("認可拒否: 認識できない予約パス形状: %s %s", c.Request.Method, path)
	return false
}
