package token

import (
	"crypto/subtle"
	"fmt"
	"time"

	"hackrx-go/internal/config"

	"golang.org/x/crypto/bcrypt"
)

// Verifier 判断请求携带的 Bearer Token 是否可信。
type Verifier interface {
	Verify(presented string) bool
}

// StaticVerifier 与配置的固定密钥做常量时间比较。
type StaticVerifier struct {
	secret []byte
}

func NewStaticVerifier(secret string) *StaticVerifier {
	return &StaticVerifier{secret: []byte(secret)}
}

func (v *StaticVerifier) Verify(presented string) bool {
	if len(v.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), v.secret) == 1
}

// BcryptVerifier 只保存密钥的 bcrypt 哈希，配置文件中不出现明文。
type BcryptVerifier struct {
	hash []byte
}

func NewBcryptVerifier(hash string) *BcryptVerifier {
	return &BcryptVerifier{hash: []byte(hash)}
}

func (v *BcryptVerifier) Verify(presented string) bool {
	if presented == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(presented)) == nil
}

// NewVerifier 根据 auth.mode 构造校验器。
func NewVerifier(cfg config.AuthConfig) (Verifier, error) {
	switch cfg.Mode {
	case "", "static":
		return NewStaticVerifier(cfg.Token), nil
	case "bcrypt":
		if _, err := bcrypt.Cost([]byte(cfg.TokenHash)); err != nil {
			return nil, fmt.Errorf("auth.token_hash 不是合法的 bcrypt 哈希: %w", err)
		}
		return NewBcryptVerifier(cfg.TokenHash), nil
	case "jwt":
		return NewJWTManager(cfg.JWTSecret, 24*time.Hour), nil
	default:
		return nil, fmt.Errorf("未知的 auth.mode: %s", cfg.Mode)
	}
}
