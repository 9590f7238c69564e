package repository

import (
	"context"
	"errors"

	"evoting-backend/models"

	"gorm.io/gorm"
)

// 数据层错误定义
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserDuplicate = errors.New("user already exists")
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfilePicture(ctx context.Context, username, url string) error
}

// UserRepositoryImpl 基于GORM的用户数据仓库
type UserRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository 创建用户数据仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

// CreateUser 创建用户，用户名唯一索引冲突时返回ErrUserDuplicate
func (r *UserRepositoryImpl) CreateUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserDuplicate
	}
	return err
}

// GetUserByUsername 根据用户名查询用户
func (r *UserRepositoryImpl) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfilePicture 更新用户头像URL
func (r *UserRepositoryImpl) UpdateProfilePicture(ctx context.Context, username, url string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Update("profile_picture_url", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
