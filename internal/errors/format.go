package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI renders err for the terminal: message, hint and code. With
// verbose set, the cause and details are listed too. Errors without a code
// are reported as internal.
func FormatForCLI(err error, verbose bool) string {
	if err == nil {
		return ""
	}

	ge, ok := asGutenError(err)
	if !ok {
		ge = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", ge.Message)
	if ge.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", ge.Suggestion)
	}
	if verbose {
		if ge.Cause != nil && ge.Cause.Error() != ge.Message {
			fmt.Fprintf(&sb, "  Cause: %s\n", ge.Cause)
		}
		for _, k := range sortedKeys(ge.Details) {
			fmt.Fprintf(&sb, "  %s: %s\n", k, ge.Details[k])
		}
	}
	fmt.Fprintf(&sb, "  Code: %s\n", ge.Code)
	return sb.String()
}

// LogAttrs returns slog key/value pairs describing err, for use as
// logger.Error("stage_failed", LogAttrs(err)...). Plain errors produce only
// "error".
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	attrs := []any{slog.String("error", err.Error())}
	ge, ok := asGutenError(err)
	if !ok {
		return attrs
	}

	attrs = append(attrs,
		slog.String("error_code", ge.Code),
		slog.String("severity", string(ge.Severity)),
		slog.Bool("retryable", ge.Retryable),
	)
	if ge.Suggestion != "" {
		attrs = append(attrs, slog.String("suggestion", ge.Suggestion))
	}
	if len(ge.Details) > 0 {
		details := make([]any, 0, len(ge.Details))
		for _, k := range sortedKeys(ge.Details) {
			details = append(details, slog.String(k, ge.Details[k]))
		}
		attrs = append(attrs, slog.Group("details", details...))
	}
	return attrs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asGutenError(err error) (*GutenError, bool) {
	var ge *GutenError
	if stderrors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
