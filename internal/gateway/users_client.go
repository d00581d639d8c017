package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/eexxio/TW/pkg/httpclient"
)

// errInvalidCredentials はメールアドレスまたはパスワードの不一致を表すエラー。
var errInvalidCredentials = errors.New("メールアドレスまたはパスワードが正しくありません")

// userDetails はユーザーサービスから取得するアカウント情報。
type userDetails struct {
	// UserID はユーザーの数値識別子。
	UserID int64 `json:"userId"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Role はユーザーのロール。
	Role string `json:"role"`
}

// usersClient はユーザーサービスへの問い合わせクライアント。
// 資格情報の検証と、メールアドレスによるアカウント取得を行う。
type usersClient struct {
	// client はユーザーサービスへのHTTPクライアント。
	client *httpclient.Client
}

// newUsersClient は新しいusersClientを生成する。
func newUsersClient(usersURL string) *usersClient {
	return &usersClient{client: httpclient.New(usersURL)}
}

// validateCredentials は資格情報をユーザーサービスで検証し、
// 一致した場合はアカウント情報を返す。不一致・通信失敗は区別せず
// errInvalidCredentialsとして扱う。
func (u *usersClient) validateCredentials(ctx context.Context, email, password string) (userDetails, error) {
	query := url.Values{"email": {email}, "password": {password}}
	if err := u.client.PostJSON(ctx, "/users/login?"+query.Encode(), nil, nil); err != nil {
		return userDetails{}, errInvalidCredentials
	}
	return u.getUserByEmail(ctx, email)
}

// getUserByEmail は全ユーザー一覧からメールアドレスの一致するアカウントを探す。
// ユーザーサービスはメールアドレスによる単一取得APIを提供しないため一覧から検索する。
func (u *usersClient) getUserByEmail(ctx context.Context, email string) (userDetails, error) {
	var users []userDetails
	if err := u.client.GetJSON(ctx, "/users", &users); err != nil {
		return userDetails{}, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}

	for _, user := range users {
		if user.Email == email {
			return user, nil
		}
	}
	return userDetails{}, errInvalidCredentials
}
