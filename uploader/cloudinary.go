package uploader

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"evoting-backend/config"
)

// ErrUploadFailed 图片上传失败
var ErrUploadFailed = errors.New("image upload failed")

// Uploader 图片上传接口
type Uploader interface {
	Upload(data []byte, folder string) (url string, err error)
}

// CloudinaryUploader 通过Cloudinary HTTP上传接口存储图片
// Cloudinary没有官方Go SDK，直接调用其REST签名上传端点
type CloudinaryUploader struct {
	cloudName string
	apiKey    string
	apiSecret string
	client    *http.Client
}

// NewCloudinaryUploader 创建Cloudinary上传客户端
func NewCloudinaryUploader(cfg *config.Config) *CloudinaryUploader {
	return &CloudinaryUploader{
		cloudName: cfg.CloudinaryName,
		apiKey:    cfg.CloudinaryAPIKey,
		apiSecret: cfg.CloudinaryAPISecret,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// uploadResponse Cloudinary上传接口响应
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload 上传图片并返回可访问的URL
// 任何传输或服务端错误统一包装为ErrUploadFailed
func (u *CloudinaryUploader) Upload(data []byte, folder string) (string, error) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	publicID := uuid.New().String()

	// 签名参数按字典序拼接后附加api_secret做SHA1
	toSign := fmt.Sprintf("folder=%s&public_id=%s&timestamp=%s%s", folder, publicID, timestamp, u.apiSecret)
	digest := sha1.Sum([]byte(toSign))
	signature := hex.EncodeToString(digest[:])

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"api_key":   u.apiKey,
		"timestamp": timestamp,
		"folder":    folder,
		"public_id": publicID,
		"signature": signature,
	}
	for key, val := range fields {
		if err := writer.WriteField(key, val); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}

	part, err := writer.CreateFormFile("file", publicID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", u.cloudName)
	req, err := http.NewRequest(http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	var result uploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if resp.StatusCode != http.StatusOK || result.SecureURL == "" {
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, result.Error.Message)
	}

	return result.SecureURL, nil
}
