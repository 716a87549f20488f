package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// errorDetailHandler decorates records carrying ErrAttr with the
// cockroachdb stack trace and any user-facing hints of the error chain.
type errorDetailHandler struct {
	next slog.Handler
}

// WrapErrorHandler wraps next with errorDetailHandler.
func WrapErrorHandler(next slog.Handler) slog.Handler {
	return &errorDetailHandler{next: next}
}

func (h *errorDetailHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *errorDetailHandler) Handle(ctx context.Context, r slog.Record) error {
	var found error
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == ErrAttrKey {
			found, _ = a.Value.Any().(error)
			return false
		}
		return true
	})
	if found != nil {
		r.AddAttrs(errorDetails(found)...)
	}
	return h.next.Handle(ctx, r)
}

func (h *errorDetailHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &errorDetailHandler{next: h.next.WithAttrs(attrs)}
}

func (h *errorDetailHandler) WithGroup(g string) slog.Handler {
	return &errorDetailHandler{next: h.next.WithGroup(g)}
}

func errorDetails(err error) []slog.Attr {
	var attrs []slog.Attr
	if trace := extractStacktrace(err); trace != "" {
		attrs = append(attrs, slog.String(StacktraceAttrKey, trace))
	}
	if hint := errors.FlattenHints(err); hint != "" {
		attrs = append(attrs, slog.String(HintAttrKey, hint))
	}
	return attrs
}

// extractStacktrace returns the first safe detail found along the chain,
// which for errors built with errors.WithStack is the formatted call stack.
// Hint and message wrappers carry no safe details, so the outer layers are
// skipped until the stack layer is reached.
func extractStacktrace(err error) string {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if details := errors.GetSafeDetails(e).SafeDetails; len(details) > 0 {
			return details[0]
		}
	}
	return ""
}
