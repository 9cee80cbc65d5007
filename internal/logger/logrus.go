package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	ctxKeyLog ctxKey = iota
)

var std = logrus.New()

// Std is the logger used when a context carries no entry.
func Std() *logrus.Logger { return std }

// Entry returns the *logrus.Entry carried by ctx, falling back to an entry on Std.
func Entry(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(ctxKeyLog).(*logrus.Entry); ok && e != nil {
		return e
	}
	return logrus.NewEntry(std)
}

func WithLogEntry(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKeyLog, e)
}

// WithFields derives a child entry with fields and stores it on the returned context.
func WithFields(ctx context.Context, fields logrus.Fields) (context.Context, *logrus.Entry) {
	log := Entry(ctx).WithFields(fields)
	return WithLogEntry(ctx, log), log
}
