package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"sync"
)

var (
	mu sync.RWMutex
	// secretKey 用于对cookie中的用户ID签名
	secretKey []byte
)

// SetSecretKey 使用配置中的密钥。为空时生成一个随机密钥，
// 此时已签发的cookie在进程重启后全部失效
func SetSecretKey(secret string) error {
	if secret != "" {
		mu.Lock()
		secretKey = []byte(secret)
		mu.Unlock()
		return nil
	}
	return GenerateSecretKey()
}

// GenerateSecretKey 生成一个密码学安全的32字节随机密钥。
func GenerateSecretKey() error {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	mu.Lock()
	secretKey = key
	mu.Unlock()
	return nil
}

func signature(value string) []byte {
	mu.RLock()
	defer mu.RUnlock()
	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(value))
	return mac.Sum(nil)
}

// Sign 返回 value.签名 形式的字符串，签名为 Base64 URL 编码的 HMAC-SHA256
func Sign(value string) string {
	return value + "." + base64.RawURLEncoding.EncodeToString(signature(value))
}

// Verify 校验 Sign 的输出，返回原始值
func Verify(signed string) (string, bool) {
	idx := strings.LastIndexByte(signed, '.')
	if idx <= 0 {
		return "", false
	}
	value, sigB64 := signed[:idx], signed[idx+1:]

	actual, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return "", false
	}
	// 时间恒定的比较，防止时序攻击
	if !hmac.Equal(signature(value), actual) {
		return "", false
	}
	return value, true
}
