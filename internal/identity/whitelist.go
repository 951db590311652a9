package identity

import "strings"

// Whitelist is the immutable set of authorized emails. Matching ignores case and
// surrounding whitespace. An empty whitelist authorizes nobody.
type Whitelist struct {
	emails map[string]struct{}
}

// NewWhitelist builds a whitelist, dropping blank entries.
func NewWhitelist(emails []string) *Whitelist {
	w := &Whitelist{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if n := normalizeEmail(e); n != "" {
			w.emails[n] = struct{}{}
		}
	}
	return w
}

// Allows reports whether email is authorized. A nil whitelist authorizes nobody.
func (w *Whitelist) Allows(email string) bool {
	n := normalizeEmail(email)
	if w == nil || n == "" {
		return false
	}
	_, ok := w.emails[n]
	return ok
}

// Len returns the number of authorized emails.
func (w *Whitelist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.emails)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
