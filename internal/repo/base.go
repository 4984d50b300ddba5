// Package repo holds helpers shared by the gorm repositories.
package repo

import (
	"context"
	"errors"

	"github.com/introcar/introcar-backend/pkg/db"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"gorm.io/gorm"
)

// Base is embedded by domain repositories.
type Base struct {
	db *gorm.DB
}

func NewBase(conn *gorm.DB) (Base, error) {
	if conn == nil {
		return Base{}, errors.New("db required")
	}
	return Base{db: conn}, nil
}

// DB returns the connection bound to ctx. A nil ctx returns the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Tx runs fn in a transaction bound to ctx.
func (b Base) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}

// Translate maps storage errors onto typed errors. resource names the entity
// in not-found and conflict messages.
func Translate(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case pkgerrors.As(err) != nil:
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, resource+" already exists")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database request timed out")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable")
	}
}
