package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type assertError string

func (e assertError) Error() string { return string(e) }

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback string
		country  string
		want     string
	}{
		{
			name: "x-language overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Language", "en-US")
			},
			country: "DE",
			want:    "en",
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.5")
			},
			want: "de",
		},
		{
			name:    "german-speaking country",
			country: "AT",
			want:    "de",
		},
		{
			name:    "other country defaults to english",
			country: "US",
			want:    "en",
		},
		{
			name:     "configured fallback",
			fallback: "en",
			want:     "en",
		},
		{
			name: "default to german",
			want: "de",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			got := detectLanguage(req, tc.fallback, tc.country)
			if got != tc.want {
				t.Fatalf("detectLanguage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "de")
				r.Header.Set("CF-IPCountry", "us")
			},
			want: "DE",
		},
		{
			name: "resolver fallback",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					t.Fatalf("unexpected ip: %s", ip)
				}
				return "ch", nil
			},
			want: "CH",
		},
		{
			name: "resolver error returns empty",
			resolver: func(ip string) (string, error) {
				return "", assertError("boom")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			got := resolveCountry(req, tc.resolver)
			if got != tc.want {
				t.Fatalf("resolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"de":                "de",
		"de-AT":             "de",
		"en-GB,en;q=0.9":    "en",
		"":                  "",
		"not a valid tag !": "",
	}
	for in, want := range cases {
		if got := NormalizeLanguage(in); got != want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLanguageFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LanguageFromContext(ctx); got != "de" {
		t.Fatalf("LanguageFromContext() default = %q, want %q", got, "de")
	}
	ctx = context.WithValue(ctx, LanguageKey, "en")
	if got := LanguageFromContext(ctx); got != "en" {
		t.Fatalf("LanguageFromContext() with value = %q, want %q", got, "en")
	}
}
