// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

// Package errutil holds helpers for oops errors shared by sysboard packages.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at ERROR level. Oops errors contribute their code and
// context as separate attributes; other errors are logged as a string. The
// context is passed to the handler so trace correlation applies.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, Attrs(err)...)
	logger.ErrorContext(ctx, msg, attrs...)
}

// Attrs returns the slog attributes describing err.
func Attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		attrs = append(attrs, "context", errCtx)
	}
	return attrs
}
