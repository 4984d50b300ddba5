package middleware

import (
	"context"

	"github.com/introcar/introcar-backend/pkg/auth"
	"github.com/introcar/introcar-backend/pkg/db/models"
)

type contextKey string

const (
	ctxAdminSubject contextKey = "admin_subject"
	ctxAdminRole    contextKey = "admin_role"
	ctxTenant       contextKey = "tenant"
	ctxCartSession  contextKey = "cart_session"
)

func AdminSubjectFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxAdminSubject).(string); ok {
		return v
	}
	return ""
}

func AdminRoleFromContext(ctx context.Context) auth.Role {
	if v, ok := ctx.Value(ctxAdminRole).(auth.Role); ok {
		return v
	}
	return ""
}

// TenantFromContext returns the storefront tenant, or nil on the main site.
func TenantFromContext(ctx context.Context) *models.Tenant {
	if v, ok := ctx.Value(ctxTenant).(*models.Tenant); ok {
		return v
	}
	return nil
}

func CartSessionFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxCartSession).(string); ok {
		return v
	}
	return ""
}

// WithTenant injects the resolved tenant into the context.
func WithTenant(ctx context.Context, tenant *models.Tenant) context.Context {
	return context.WithValue(ctx, ctxTenant, tenant)
}

// WithAdmin injects the authenticated admin into the context.
func WithAdmin(ctx context.Context, subject string, role auth.Role) context.Context {
	ctx = context.WithValue(ctx, ctxAdminSubject, subject)
	return context.WithValue(ctx, ctxAdminRole, role)
}
