// Package vault 令牌加密存储：AES-256-GCM，密文格式 base64(nonce || ciphertext || tag)
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"
)

// KeySize AES-256 密钥长度
const KeySize = 32

// ErrInvalidKey 密钥长度错误，属于启动期致命配置错误
var ErrInvalidKey = errors.New("invalid vault key: must be 32 bytes for AES-256")

// Vault 令牌保险库
type Vault struct {
	aead  cipher.AEAD
	store repository.TokenStore
}

// New 创建 Vault；密钥不是 32 字节时拒绝启动
func New(secret []byte, store repository.TokenStore) (*Vault, error) {
	if len(secret) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &Vault{aead: aead, store: store}, nil
}

// Encrypt 加密明文
func (v *Vault) Encrypt(plain string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密密文
func (v *Vault) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	n := v.aead.NonceSize()
	if len(raw) < n {
		return "", errors.New("ciphertext too short to contain nonce")
	}
	plain, err := v.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}

// Store 加密令牌对并在一条语句内写入
func (v *Vault) Store(ctx context.Context, deviceID int64, pair domain.TokenPair) error {
	if !pair.Valid() {
		return errors.New("refusing to store partial token pair")
	}
	access, err := v.Encrypt(pair.Access)
	if err != nil {
		return err
	}
	refresh, err := v.Encrypt(pair.Refresh)
	if err != nil {
		return err
	}
	return v.store.UpdateTokens(ctx, deviceID, access, refresh)
}

// StoreTokens 实现 fitbit.TokenSink
func (v *Vault) StoreTokens(ctx context.Context, deviceID int64, pair domain.TokenPair) error {
	return v.Store(ctx, deviceID, pair)
}

// Fetch 读取并解密令牌对
// 任一列缺失时 ok=false；任一列解密失败时返回错误，不会返回半个令牌对
func (v *Vault) Fetch(ctx context.Context, deviceID int64) (domain.TokenPair, bool, error) {
	encAccess, encRefresh, err := v.store.GetTokens(ctx, deviceID)
	if err != nil {
		return domain.TokenPair{}, false, err
	}
	if encAccess == "" || encRefresh == "" {
		return domain.TokenPair{}, false, nil
	}

	access, err := v.Decrypt(encAccess)
	if err != nil {
		return domain.TokenPair{}, false, fmt.Errorf("access token: %w", err)
	}
	refresh, err := v.Decrypt(encRefresh)
	if err != nil {
		return domain.TokenPair{}, false, fmt.Errorf("refresh token: %w", err)
	}
	return domain.TokenPair{Access: access, Refresh: refresh}, true, nil
}
