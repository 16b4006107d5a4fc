package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const rsaKeyBits = 2048

var (
	// ErrDecryptFailed 密文解密失败
	ErrDecryptFailed = errors.New("rsa decrypt failed")
)

// KeyManager 管理密码传输加密使用的 RSA 密钥对
//
// 密钥对持久化在 keyDir 下（private.pem 0600 / public.pem 0644），
// 不存在时自动生成，保证重启后前端缓存的公钥仍然可用。
type KeyManager struct {
	privateKey *rsa.PrivateKey
	publicPEM  []byte
	logger     *zap.Logger
}

// NewKeyManager 加载或生成 RSA 密钥对
func NewKeyManager(keyDir string, logger *zap.Logger) (*KeyManager, error) {
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}

	privatePath := filepath.Join(keyDir, "private.pem")
	publicPath := filepath.Join(keyDir, "public.pem")

	key, err := loadPrivateKey(privatePath)
	if err != nil {
		logger.Info("生成新的 RSA 密钥对", zap.String("dir", keyDir))
		key, err = rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return nil, fmt.Errorf("generate rsa key: %w", err)
		}
		if err := persistKeyPair(key, privatePath, publicPath); err != nil {
			return nil, err
		}
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	return &KeyManager{
		privateKey: key,
		publicPEM:  publicPEM,
		logger:     logger,
	}, nil
}

// PublicKeyPEM 返回 PEM 编码的公钥，前端用它加密登录密码
func (m *KeyManager) PublicKeyPEM() string {
	return string(m.publicPEM)
}

// DecryptBase64 解密 base64 编码的 RSA-OAEP(SHA-256) 密文
func (m *KeyManager) DecryptBase64(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptFailed
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, m.privateKey, raw, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

// EncryptBase64 使用公钥加密，返回 base64 密文。测试与诊断用。
func (m *KeyManager) EncryptBase64(plaintext string) (string, error) {
	raw, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &m.privateKey.PublicKey, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("rsa encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block in private key file")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

func persistKeyPair(key *rsa.PrivateKey, privatePath, publicPath string) error {
	privateDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER})
	if err := os.WriteFile(privatePath, privatePEM, 0600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("marshal public key: %w", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	if err := os.WriteFile(publicPath, publicPEM, 0644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}
