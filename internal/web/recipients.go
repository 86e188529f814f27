package web

import "strings"

// RecipientResolver maps a site to the addresses its alerts go to.
// Sites without an explicit list fall back to the default recipients.
type RecipientResolver struct {
	perSite  map[string][]string
	fallback []string
}

// NewRecipientResolver builds a resolver. perSite may be nil.
func NewRecipientResolver(perSite map[string][]string, fallback []string) *RecipientResolver {
	return &RecipientResolver{perSite: perSite, fallback: fallback}
}

// Resolve returns the recipient list for a site.
func (r *RecipientResolver) Resolve(siteID string) []string {
	if list, ok := r.perSite[siteID]; ok && len(list) > 0 {
		return list
	}
	return r.fallback
}

// ParseRecipients splits a comma-separated address list, trimming
// whitespace and dropping empty entries.
func ParseRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
