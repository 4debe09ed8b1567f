package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/user/omovies/internal/model"
	"github.com/user/omovies/internal/utils"
)

// AuthService 登录与注册，令牌由远程 API 签发
type AuthService struct {
	client *utils.HTTPClient
}

func NewAuthService(client *utils.HTTPClient) *AuthService {
	return &AuthService{client: client}
}

// Login POST /auth/login
func (s *AuthService) Login(ctx context.Context, creds model.LoginCredentials) (*model.AuthResult, error) {
	var res model.AuthResult
	if err := s.client.Do(ctx, http.MethodPost, "/auth/login", nil, "", creds, &res); err != nil {
		return nil, fmt.Errorf("登录失败: %w", err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("登录失败: %w", utils.ErrNoContent)
	}
	return &res, nil
}

// Signup POST /auth/signup
func (s *AuthService) Signup(ctx context.Context, creds model.SignupCredentials) (*model.AuthResult, error) {
	var res model.AuthResult
	if err := s.client.Do(ctx, http.MethodPost, "/auth/signup", nil, "", creds, &res); err != nil {
		return nil, fmt.Errorf("注册失败: %w", err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("注册失败: %w", utils.ErrNoContent)
	}
	return &res, nil
}
