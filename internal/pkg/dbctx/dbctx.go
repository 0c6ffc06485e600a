// Package dbctx threads a request context and an optional transaction
// through repository calls.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB picks Tx over fallback and binds it to Ctx (Background when unset).
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	conn := fallback
	if c.Tx != nil {
		conn = c.Tx
	}
	if c.Ctx == nil {
		return conn.WithContext(context.Background())
	}
	return conn.WithContext(c.Ctx)
}

