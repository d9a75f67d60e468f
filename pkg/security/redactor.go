package security

import (
	"sort"
	"strings"
	"sync"

	"github.com/arnavsurve/pagestep/pkg/types"
)

// Mask replaces every secret in redacted output.
const Mask = "********"

// Redactor masks sensitive values in log output. Values can be added while
// jobs run, so every method is safe for concurrent use.
type Redactor struct {
	mu      sync.RWMutex
	Secrets []string
}

// NewRedactor collects the current values of the named variables.
func NewRedactor(names []string, vars types.VarContext) *Redactor {
	r := &Redactor{}
	for _, name := range names {
		if val, ok := vars[name]; ok && val != "" {
			r.Secrets = append(r.Secrets, val)
		}
	}
	return r
}

// Add registers more values to mask. Empty and already known values are ignored.
func (r *Redactor) Add(values ...string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range values {
		if v == "" || contains(r.Secrets, v) {
			continue
		}
		r.Secrets = append(r.Secrets, v)
	}
}

func (r *Redactor) Redact(s string) string {
	if r == nil {
		return s
	}
	r.mu.RLock()
	if len(r.Secrets) == 0 {
		r.mu.RUnlock()
		return s
	}
	secrets := make([]string, len(r.Secrets))
	copy(secrets, r.Secrets)
	r.mu.RUnlock()

	// Longer secrets first so a secret containing another is masked whole
	sort.Slice(secrets, func(i, j int) bool {
		return len(secrets[i]) > len(secrets[j])
	})

	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, Mask)
	}
	return s
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
