package service

import (
	"errors"
	"fmt"

	"biostats-go/internal/config"
	"biostats-go/internal/dto"
	"biostats-go/internal/models"
	"biostats-go/internal/repository"
	"biostats-go/internal/utils"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	// ErrUserDisabled 账号已禁用
	ErrUserDisabled = errors.New("用户已被禁用")
	// ErrUserExists 用户名已被占用
	ErrUserExists = errors.New("用户名已存在")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("用户不存在")
)

// AuthService 目录维护者认证服务
type AuthService struct {
	userRepo   *repository.UserRepository
	jwtManager *utils.JWTManager
	admin      config.AdminConfig
	logger     *logrus.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo *repository.UserRepository, jwtManager *utils.JWTManager, admin config.AdminConfig, logger *logrus.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		admin:      admin,
		logger:     logger,
	}
}

// CreateUser 创建维护者账号，角色缺省为 editor
func (s *AuthService) CreateUser(req *dto.CreateUserRequest) (*dto.UserInfo, error) {
	exists, err := s.userRepo.ExistsByUsername(req.Username)
	if err != nil {
		return nil, fmt.Errorf("检查用户名失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, req.Username)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleEditor
	}
	user := &models.User{
		Username:     req.Username,
		PasswordHash: hashedPassword,
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"username": user.Username, "role": role}).Info("维护者账号已创建")
	return userInfo(user), nil
}

// Login 用户登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(req.Username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := utils.CheckPassword(req.Password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("生成Token失败: %w", err)
	}

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.jwtManager.ExpireTime().Seconds()),
		User:        *userInfo(user),
	}, nil
}

// GetMe 获取当前用户信息
func (s *AuthService) GetMe(userID uint) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return userInfo(user), nil
}

// InitAdmin 没有管理员时按配置创建，配置中的密码可以直接是bcrypt哈希
func (s *AuthService) InitAdmin() error {
	if admin, err := s.userRepo.GetAdmin(); err == nil && admin != nil {
		return nil
	}

	passwordHash := s.admin.Password
	if !utils.IsBcryptHash(passwordHash) {
		hashedPassword, err := utils.HashPassword(s.admin.Password)
		if err != nil {
			return fmt.Errorf("密码哈希失败: %w", err)
		}
		passwordHash = hashedPassword
	}

	user := &models.User{
		Username:     s.admin.Username,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("创建管理员失败: %w", err)
	}

	s.logger.WithField("username", user.Username).Info("管理员账号已初始化")
	return nil
}

func userInfo(user *models.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}
