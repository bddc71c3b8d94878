package utils

import (
	"context"
)

type contextKey string

const (
	ContextKeyToken         = contextKey("Token")
	ContextKeyUserId        = contextKey("UserId")
	ContextKeyUserName      = contextKey("UserName")
	ContextKeyUserRole      = contextKey("UserRole")
	ContextKeyCorrelationId = contextKey("CorrelationId")
)

func contextValue[T any](ctx context.Context, key contextKey) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return contextValue[string](ctx, ContextKeyToken)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return contextValue[int](ctx, ContextKeyUserId)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return contextValue[string](ctx, ContextKeyUserName)
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	return contextValue[string](ctx, ContextKeyUserRole)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return contextValue[string](ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ContextKeyToken, token)
}

// SetOperatorInContext stores the authenticated floor user for the rest of the request.
func SetOperatorInContext(ctx context.Context, userId int, name string, role string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserId, userId)
	ctx = context.WithValue(ctx, ContextKeyUserName, name)
	return context.WithValue(ctx, ContextKeyUserRole, role)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, correlationId)
}
