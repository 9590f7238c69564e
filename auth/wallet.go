package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// GenerateWallet 生成选民钱包（地址和私钥）
// 地址取私钥Keccak256摘要的后20字节，仅作为不透明标识存储，
// 不参与任何链上操作
func GenerateWallet() (address string, privateKey string, err error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", "", fmt.Errorf("生成私钥失败: %w", err)
	}

	digest := sha3.NewLegacyKeccak256()
	digest.Write(key)
	sum := digest.Sum(nil)

	address = "0x" + hex.EncodeToString(sum[12:])
	privateKey = "0x" + hex.EncodeToString(key)
	return address, privateKey, nil
}
