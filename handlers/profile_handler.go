package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"evoting-backend/service"
	"evoting-backend/uploader"
)

// maxImageSize 上传图片大小上限
const maxImageSize = 5 << 20

// ProfileHandler 用户资料相关的HTTP处理器
type ProfileHandler struct {
	auth    service.AuthService
	uploads uploader.Uploader
}

// NewProfileHandler 创建用户资料处理器
func NewProfileHandler(auth service.AuthService, uploads uploader.Uploader) *ProfileHandler {
	return &ProfileHandler{auth: auth, uploads: uploads}
}

// readImageFile 从multipart表单读取上传的图片内容
func readImageFile(c *gin.Context) ([]byte, bool) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image file"})
		return nil, false
	}
	if len(data) > maxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image file too large"})
		return nil, false
	}
	return data, true
}

// UploadProfilePicture 上传当前用户的头像
func (h *ProfileHandler) UploadProfilePicture(c *gin.Context) {
	username := c.GetString(ContextUsername)

	data, ok := readImageFile(c)
	if !ok {
		return
	}

	url, err := h.uploads.Upload(data, "profile_pictures")
	if err != nil {
		log.Printf("上传头像失败: user=%s err=%v", username, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload image"})
		return
	}

	if err := h.auth.SetProfilePicture(c.Request.Context(), username, url); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("保存头像失败: user=%s err=%v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile picture"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "Profile picture updated",
		"profile_picture_url": url,
	})
}
