package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/digitalstore/internal/mailer"
	"github.com/mmeshcher/digitalstore/internal/model"
)

// bcryptCost задаёт стоимость хеширования пароля.
const bcryptCost = 12

// verificationTTL задаёт срок жизни токена подтверждения почты.
const verificationTTL = 24 * time.Hour

// RegisterUser регистрирует нового пользователя и отправляет письмо
// для подтверждения почты. Возвращает пользователя и признак отправки письма.
func (s *Service) RegisterUser(ctx context.Context, name, email, password string) (*model.User, bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	token := uuid.NewString()
	expires := time.Now().Add(verificationTTL)

	user, err := s.repo.CreateUser(ctx, name, email, hash, token, expires)
	if err != nil {
		return nil, false, err
	}

	emailSent := s.sendEmail(ctx, user.Email, mailer.TemplateVerification, map[string]string{
		"name":            user.Name,
		"verificationUrl": fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token),
	})

	return user, emailSent, nil
}

// VerifyEmail подтверждает почту по токену из письма и отправляет
// приветственное письмо. Возвращает пользователя и признак отправки письма.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*model.User, bool, error) {
	user, err := s.repo.VerifyEmailToken(ctx, token)
	if err != nil {
		return nil, false, err
	}

	emailSent := s.sendEmail(ctx, user.Email, mailer.TemplateWelcome, map[string]string{
		"name": user.Name,
	})

	return user, emailSent, nil
}

// AuthenticateUser проверяет учётные данные пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Error("update last login failed", zap.Int64("userID", user.ID), zap.Error(err))
	}

	return user, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}
