// Package ctxutil carries request-scoped identity and tracing through
// context.Context, from the HTTP edge into services and job handlers.
package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const (
	traceKey ctxKey = iota
	callerKey
)

// TraceData correlates log lines of one request or job run.
type TraceData struct {
	TraceID   string
	RequestID string
}

// RequestData is the authenticated caller.
type RequestData struct {
	UserID    uuid.UUID
	SessionID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceKey, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceKey).(*TraceData)
	return td
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, callerKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(callerKey).(*RequestData)
	return rd
}

// UserID returns the caller's id, or uuid.Nil outside an authenticated request.
func UserID(ctx context.Context) uuid.UUID {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.UserID
	}
	return uuid.Nil
}

// LogFields returns the ids found in ctx as logger key/value pairs.
func LogFields(ctx context.Context) []interface{} {
	var kv []interface{}
	if td := GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			kv = append(kv, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			kv = append(kv, "request_id", td.RequestID)
		}
	}
	if rd := GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		kv = append(kv, "user_id", rd.UserID.String())
		if rd.SessionID != "" {
			kv = append(kv, "session_id", rd.SessionID)
		}
	}
	return kv
}
