package service

import (
	"context"
	"errors"

	"evoting-backend/auth"
	"evoting-backend/models"
	"evoting-backend/repository"
)

// AuthService 用户注册登录服务接口
type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (token string, user *models.User, err error)
	SetProfilePicture(ctx context.Context, username, url string) error
	EnsureAdmin(ctx context.Context, username, password string) error
}

// AuthServiceImpl 用户注册登录服务实现
type AuthServiceImpl struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenService
}

// NewAuthService 创建用户服务
func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenService) AuthService {
	return &AuthServiceImpl{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Register 注册新用户
// 注册时生成选民钱包，地址随响应返回，私钥仅存储
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	address, privateKey, err := auth.GenerateWallet()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Password:     hash,
		VoterAddress: address,
		PrivateKey:   privateKey,
		Role:         models.RoleVoter,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return user, nil
}

// Login 校验凭证并签发访问令牌
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !auth.VerifyPassword(password, user.Password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// SetProfilePicture 更新用户头像URL
func (s *AuthServiceImpl) SetProfilePicture(ctx context.Context, username, url string) error {
	if err := s.userRepo.UpdateProfilePicture(ctx, username, url); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// EnsureAdmin 确保管理员账号存在，启动时调用
// 管理员身份是用户的role字段，不依赖任何固定用户名约定
func (s *AuthServiceImpl) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	if _, err := s.userRepo.GetUserByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	address, privateKey, err := auth.GenerateWallet()
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:     username,
		Password:     hash,
		VoterAddress: address,
		PrivateKey:   privateKey,
		Role:         models.RoleAdmin,
	}

	err = s.userRepo.CreateUser(ctx, admin)
	if errors.Is(err, repository.ErrUserDuplicate) {
		// 并发启动时可能已被其他实例创建
		return nil
	}
	return err
}
