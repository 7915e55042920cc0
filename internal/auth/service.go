package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"esurat/backend/internal/auth/jwt"
	"esurat/backend/internal/domain"
	"esurat/backend/internal/storage"
)

var (
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserDisabled 用户已被停用
	ErrUserDisabled = errors.New("user is disabled")
)

// Service 登录认证服务
//
// 登录面向后台管理端；快捷操作走魔法链接，不经过这里
type Service struct {
	store storage.UserRepository
	jwt   *jwt.Manager
}

// NewService 创建认证服务
func NewService(store storage.UserRepository, jwtManager *jwt.Manager) *Service {
	return &Service{store: store, jwt: jwtManager}
}

// LoginResult 登录结果
type LoginResult struct {
	User   *domain.User   `json:"user"`
	Tokens *jwt.TokenPair `json:"tokens"`
}

// Login 用户名密码登录
//
// 用户不存在与密码错误返回同一错误，不泄露用户名是否存在
func (s *Service) Login(username, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.jwt.GenerateTokenPair(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh 使用刷新令牌换取新的访问令牌
func (s *Service) Refresh(refreshToken string) (string, error) {
	return s.jwt.RefreshAccessToken(refreshToken)
}

// HashPassword 生成密码哈希（建账工具使用）
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
