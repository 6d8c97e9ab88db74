package tools

import (
	"context"
	"fmt"
	"strings"

	"devkit/internal/catalog"
)

type contextKeyMinimums struct{}

// WithMinimums annotates the context with per-tool minimum version overrides
// from the user's settings.
func WithMinimums(ctx context.Context, minimums map[string]string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(minimums) == 0 {
		return ctx
	}
	cleaned := make(map[string]string, len(minimums))
	for name, value := range minimums {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		cleaned[strings.ToLower(name)] = trimmed
	}
	if len(cleaned) == 0 {
		return ctx
	}
	return context.WithValue(ctx, contextKeyMinimums{}, cleaned)
}

func minimumOverride(ctx context.Context, tool string) string {
	if ctx == nil {
		return ""
	}
	overrides, ok := ctx.Value(contextKeyMinimums{}).(map[string]string)
	if !ok {
		return ""
	}
	return overrides[strings.ToLower(tool)]
}

// resolveMinimumVersion applies an override only when it raises the
// descriptor's own minimum.
func resolveMinimumVersion(ctx context.Context, desc catalog.Descriptor) (string, []string) {
	minimum := strings.TrimSpace(desc.MinimumVersion)

	override := strings.TrimSpace(minimumOverride(ctx, desc.Key()))
	if override == "" {
		return minimum, nil
	}
	if meetsMinimum(override, minimum) {
		if override != minimum {
			return override, []string{fmt.Sprintf("minimum overridden by settings (%s)", override)}
		}
		return override, nil
	}
	return minimum, []string{fmt.Sprintf("settings minimum %s ignored; catalog minimum %s is higher", override, minimum)}
}
