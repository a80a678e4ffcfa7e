package auth

import (
	"context"
	"strings"
)

// Gate answers permission checks from the principal in the context. It
// implements importer.Permissions.
type Gate struct{}

// IsGranted reports whether the caller holds permission. Permissions have
// the form "bundle:level:action"; a "*" segment in a held permission matches
// any value, and a trailing "*" matches the remaining segments.
func (Gate) IsGranted(ctx context.Context, permission string) bool {
	p, ok := FromContext(ctx)
	if !ok {
		return false
	}
	if p.Admin {
		return true
	}
	for _, held := range p.Permissions {
		if matchPermission(held, permission) {
			return true
		}
	}
	return false
}

func matchPermission(held, want string) bool {
	hs := strings.Split(held, ":")
	ws := strings.Split(want, ":")

	for i, h := range hs {
		if h == "*" && i == len(hs)-1 {
			return true
		}
		if i >= len(ws) {
			return false
		}
		if h != "*" && h != ws[i] {
			return false
		}
	}
	return len(hs) == len(ws)
}
