package web

import (
	"reflect"
	"testing"
)

func TestRecipientResolver(t *testing.T) {
	resolver := NewRecipientResolver(
		map[string][]string{
			"site-a": {"a-team@example.com"},
			"site-b": {},
		},
		[]string{"ops@example.com"},
	)

	tests := []struct {
		name   string
		siteID string
		want   []string
	}{
		{"explicit list", "site-a", []string{"a-team@example.com"}},
		{"empty list falls back", "site-b", []string{"ops@example.com"}},
		{"unknown site falls back", "site-z", []string{"ops@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.Resolve(tt.siteID); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.siteID, got, tt.want)
			}
		})
	}
}

func TestParseRecipients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"simple", "a@x.com,b@x.com", []string{"a@x.com", "b@x.com"}},
		{"whitespace trimmed", " a@x.com , b@x.com ", []string{"a@x.com", "b@x.com"}},
		{"empty entries dropped", "a@x.com,,", []string{"a@x.com"}},
		{"empty string", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRecipients(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRecipients(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
