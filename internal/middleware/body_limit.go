package middleware

import (
	"net/http"
	"sort"
	"strings"
)

// BodyLimitOverride raises or lowers the body limit for one route prefix.
// Prefixes are matched with and without the /api mount point.
type BodyLimitOverride struct {
	PathPrefix string
	MaxBytes   int64
}

// LimitBodyBytesWithOverrides caps request bodies at defaultMax, except where
// the longest matching override prefix says otherwise. Non-positive limits
// leave the body unbounded.
func LimitBodyBytesWithOverrides(defaultMax int64, overrides []BodyLimitOverride) func(http.Handler) http.Handler {
	rules := make([]BodyLimitOverride, 0, len(overrides))
	for _, o := range overrides {
		if o.PathPrefix == "" {
			continue
		}
		rules = append(rules, o)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].PathPrefix) > len(rules[j].PathPrefix)
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				if limit := bodyLimitFor(r.URL.Path, defaultMax, rules); limit > 0 {
					r.Body = http.MaxBytesReader(w, r.Body, limit)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bodyLimitFor(path string, defaultMax int64, rules []BodyLimitOverride) int64 {
	mounted := strings.TrimPrefix(path, "/api")
	for _, rule := range rules {
		if strings.HasPrefix(path, rule.PathPrefix) || strings.HasPrefix(mounted, rule.PathPrefix) {
			return rule.MaxBytes
		}
	}
	return defaultMax
}
