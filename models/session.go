package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
)

type LoginInfo struct {
	Token     string    `json:"token"`
	UserId    int       `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Sector    string    `json:"sector"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(sessionId string) string {
	return "Session:" + sessionId
}

// ScanLogin opens a session for the active user owning qrCode.
func ScanLogin(ctx context.Context, qrCode string) (*LoginInfo, error) {
	scan, err := ResolveScanToken(ctx, qrCode)
	if err != nil {
		return nil, err
	}
	if scan.Kind != ScanKindUser {
		return nil, fmt.Errorf("%w: expected a user badge", ErrUnrecognizedToken)
	}
	user := scan.User

	token, err := utils.JwtGenerate(user.ID, user.Name, user.Role)
	if err != nil {
		return nil, err
	}
	claim, err := utils.JwtValidate(token)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisValue(sessionKey(claim.Id), strconv.Itoa(user.ID), utils.TokenLifespan()); err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:     token,
		UserId:    user.ID,
		Name:      user.Name,
		Role:      user.Role,
		Sector:    user.Sector,
		ExpiresAt: time.Unix(claim.ExpiresAt, 0).UTC(),
	}, nil
}

// SessionActive reports whether a validated token still has its session.
// Without Redis every signed, unexpired token counts as active.
func SessionActive(sessionId string) (bool, error) {
	if config.GetRedisDB() == nil {
		return true, nil
	}
	_, exists, err := config.GetRedisValue(sessionKey(sessionId))
	if err != nil {
		return false, err
	}
	return exists, nil
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	claim, err := utils.JwtValidate(token)
	if err != nil {
		return false, err
	}
	if err := config.RemoveRedisKey(sessionKey(claim.Id)); err != nil {
		return false, err
	}
	return true, nil
}
