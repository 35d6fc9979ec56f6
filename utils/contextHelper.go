package utils

import (
	"context"

	"github.com/hearthbank/family_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyUserId        = appctx.ContextKeyUserId
	ContextKeyGroupId       = appctx.ContextKeyGroupId
	ContextKeyRole          = appctx.ContextKeyRole
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

const roleAdmin = "ADMIN"

// Principal is the authenticated caller.
type Principal struct {
	UserId  int
	GroupId int
	Role    string
}

func (p Principal) IsAdmin() bool {
	return p.Role == roleAdmin
}

// CanSee reports whether p may read private fields of userId inside its own group.
func (p Principal) CanSee(userId int) bool {
	return p.IsAdmin() || p.UserId == userId
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetGroupIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyGroupId)
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRole)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

// SetPrincipalInContext stores every principal field under its own key.
func SetPrincipalInContext(ctx context.Context, p Principal) context.Context {
	ctx = appctx.Set(ctx, ContextKeyUserId, p.UserId)
	ctx = appctx.Set(ctx, ContextKeyGroupId, p.GroupId)
	return appctx.Set(ctx, ContextKeyRole, p.Role)
}

func GetPrincipalFromContext(ctx context.Context) (Principal, bool) {
	userId, ok := GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return Principal{}, false
	}
	groupId, _ := GetGroupIdFromContext(ctx)
	role, _ := GetRoleFromContext(ctx)
	return Principal{UserId: userId, GroupId: groupId, Role: role}, true
}
