// Package serviceaccount はGoogleサービスアカウントキーによる認証方式を提供する。
//
// base64エンコードされたキーの構造検証と、設定された許可リストに基づく
// アカウント名からロールへの対応付けを担当する。キーの鍵素材は形式の
// 正当性を証明するためだけに解析し、信頼の委譲には使用しない。
package serviceaccount

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/oauth2/google"

	"github.com/eexxio/TW/pkg/identity"
)

// credentialType はサービスアカウントキーのtypeフィールドに要求する固定値。
const credentialType = "service_account"

// Key はbase64デコード後のサービスアカウントキーのJSON構造。
// 4つの必須フィールドのみを取り出し、その他のフィールドは無視する。
type Key struct {
	// Type はキーの種別。"service_account"でなければならない。
	Type string `json:"type"`
	// ProjectID はキーが属するGCPプロジェクトのID。
	ProjectID string `json:"project_id"`
	// PrivateKey はPEM形式の秘密鍵。形式検証にのみ使用する。
	PrivateKey string `json:"private_key"`
	// ClientEmail はサービスアカウントのメールアドレス。
	ClientEmail string `json:"client_email"`
}

// Info は検証済みサービスアカウントの情報。
// 検証に失敗した場合はValid=falseで他のフィールドはゼロ値となる。
type Info struct {
	// Email はサービスアカウントのメールアドレス。
	Email string
	// Role は許可リストから対応付けたロール。
	Role identity.Role
	// ProjectID はキーが属するGCPプロジェクトのID。
	ProjectID string
	// Valid はキーが有効なサービスアカウントキーであるか。
	Valid bool
}

// RolePolicy はサービスアカウント名とロールの対応付けを定義する許可リスト。
// 起動時に設定から生成され、以降は変更されない。
type RolePolicy struct {
	// AdminAccounts はADMINロールを与えるアカウント名の一覧。
	// UserAccountsより先に照合される。
	AdminAccounts []string
	// UserAccounts はUSERロールを与えるアカウント名の一覧。
	UserAccounts []string
}

// RoleFor はサービスアカウントのメールアドレスからロールを決定する。
// メールアドレスの@より前の部分に対する部分一致（大文字小文字を区別）で、
// 管理者リスト、ユーザーリストの順に照合する。どちらにも一致しない場合は
// USERを返す。
func (p RolePolicy) RoleFor(email string) identity.Role {
	name, _, _ := strings.Cut(email, "@")

	for _, admin := range p.AdminAccounts {
		if admin = strings.TrimSpace(admin); admin != "" && strings.Contains(name, admin) {
			return identity.RoleAdmin
		}
	}
	for _, user := range p.UserAccounts {
		if user = strings.TrimSpace(user); user != "" && strings.Contains(name, user) {
			return identity.RoleUser
		}
	}

	// 暗黙のUSER割り当ては信頼範囲を広げるため、最低限ログには残す
	log.Printf("サービスアカウント %q はどの許可リストにも一致しないためUSERロールを割り当てます", name)
	return identity.RoleUser
}

// Resolver はエンコードされたサービスアカウントキーを検証するバリデータ。
type Resolver struct {
	// policy はアカウント名とロールの対応付けポリシー。
	policy RolePolicy
}

// NewResolver は新しいResolverを生成する。
func NewResolver(policy RolePolicy) *Resolver {
	return &Resolver{policy: policy}
}

// Resolve はbase64エンコードされたサービスアカウントキーを検証し、アカウント情報を返す。
// 呼び出し元にエラーは返さず、すべての失敗はValid=falseに縮退させて診断ログに残す。
func (r *Resolver) Resolve(encoded string) Info {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		log.Printf("IAM認証に失敗: base64デコードできません: %v", err)
		return Info{}
	}

	var key Key
	if err := json.Unmarshal(raw, &key); err != nil {
		log.Printf("IAM認証に失敗: キーをJSONとして解析できません: %v", err)
		return Info{}
	}

	if key.Type == "" || key.ProjectID == "" || key.PrivateKey == "" || key.ClientEmail == "" {
		log.Printf("IAM認証に失敗: サービスアカウントキーに必須フィールドが不足しています")
		return Info{}
	}

	if key.Type != credentialType {
		log.Printf("IAM認証に失敗: サービスアカウントキーではありません: type=%s", key.Type)
		return Info{}
	}

	if err := verifyKeyMaterial(raw, key.PrivateKey); err != nil {
		log.Printf("IAM認証に失敗: %v", err)
		return Info{}
	}

	role := r.policy.RoleFor(key.ClientEmail)
	log.Printf("IAM認証に成功: service_account=%s, role=%s", key.ClientEmail, role)

	return Info{
		Email:     key.ClientEmail,
		Role:      role,
		ProjectID: key.ProjectID,
		Valid:     true,
	}
}

// verifyKeyMaterial はキーが資格情報として読み込み可能であることを構造的に検証する。
// oauth2ライブラリは秘密鍵を署名時まで解析しないため、PEMの解析も明示的に行う。
func verifyKeyMaterial(rawKey []byte, privateKey string) error {
	if _, err := google.JWTConfigFromJSON(rawKey); err != nil {
		return fmt.Errorf("資格情報として読み込めません: %w", err)
	}

	block, _ := pem.Decode([]byte(privateKey))
	if block == nil {
		return errors.New("秘密鍵をPEMとしてデコードできません")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
		if _, err1 := x509.ParsePKCS1PrivateKey(block.Bytes); err1 != nil {
			return fmt.Errorf("秘密鍵を解析できません: %w", err)
		}
	}
	return nil
}
