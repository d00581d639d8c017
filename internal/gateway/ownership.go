package gateway

import (
	"context"
	"log"
	"time"

	"github.com/eexxio/TW/pkg/httpclient"
)

// resourceKind は所有権チェックの対象となるリソースの種別。
type resourceKind string

// resourceBooking は予約リソース。所有者は予約サービスが管理する。
const resourceBooking resourceKind = "booking"

// ownershipTimeout は所有者解決の外部呼び出しに適用するタイムアウト。
// 超過した呼び出しはキャンセルされ、解決不能として扱われる。
const ownershipTimeout = 3 * time.Second

// bookingOwner は予約サービスのレスポンスから所有者IDのみを取り出す構造体。
type bookingOwner struct {
	// UserID は予約を所有するユーザーのID。
	UserID int64 `json:"userId"`
}

// ownershipResolver はリソースの所有者を、そのリソースを管理するサービスへの
// 問い合わせで解決する。リクエストごとに1回だけ呼び出され、結果はキャッシュしない。
type ownershipResolver struct {
	// client は予約サービスへのHTTPクライアント。
	client *httpclient.Client
	// timeout は1回の問い合わせに許容する時間。
	timeout time.Duration
}

// newOwnershipResolver は新しいownershipResolverを生成する。
func newOwnershipResolver(bookingsURL string) *ownershipResolver {
	return &ownershipResolver{
		client:  httpclient.New(bookingsURL),
		timeout: ownershipTimeout,
	}
}

// ownerOf はリソースIDから所有者のユーザーIDを解決する。
// タイムアウト・非2xx応答・デシリアライズ失敗はすべて解決不能（ok=false）として
// 返し、エラーを呼び出し元へ伝播しない。解決不能の扱いは呼び出し元が決める。
func (r *ownershipResolver) ownerOf(ctx context.Context, resource resourceKind, id string) (int64, bool) {
	if resource != resourceBooking {
		log.Printf("所有権チェック対象外のリソース種別: %s", resource)
		return 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var booking bookingOwner
	if err := r.client.GetJSON(ctx, "/api/bookings/"+id, &booking); err != nil {
		log.Printf("予約所有者の解決に失敗: booking_id=%s: %v", id, err)
		return 0, false
	}
	return booking.UserID, true
}
