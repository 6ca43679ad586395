package utils

import (
	"strings"
	"testing"
)

func TestValidateRedirectURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name:    "valid https URL",
			url:     "https://app.example.com/billing/success",
			wantErr: false,
		},
		{
			name:    "valid http URL",
			url:     "http://app.example.com/pricing",
			wantErr: false,
		},
		{
			name:    "public IP host",
			url:     "https://93.184.216.34/done",
			wantErr: false,
		},
		{
			name:    "non-http scheme",
			url:     "ftp://example.com/file",
			wantErr: true,
		},
		{
			name:    "missing host",
			url:     "https:///path-only",
			wantErr: true,
		},
		{
			name:    "loopback IP",
			url:     "http://127.0.0.1:8080/internal",
			wantErr: true,
		},
		{
			name:    "private network IP",
			url:     "http://192.168.1.10/admin",
			wantErr: true,
		},
		{
			name:    "link-local metadata endpoint",
			url:     "http://169.254.169.254/latest/meta-data",
			wantErr: true,
		},
		{
			name:    "carrier-grade NAT range",
			url:     "http://100.64.0.1/",
			wantErr: true,
		},
		{
			name:    "localhost domain",
			url:     "http://localhost:3000/callback",
			wantErr: true,
		},
		{
			name:    "internal domain suffix",
			url:     "https://billing.service.internal/hook",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRedirectURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateRedirectURL(%q) = nil, want error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateRedirectURL(%q) = %v, want nil", tt.url, err)
			}
		})
	}
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Email string `json:"email" validate:"required,email"`
		URL   string `json:"url" validate:"omitempty,url"`
	}

	t.Run("valid struct", func(t *testing.T) {
		if err := ValidateStruct(&payload{Email: "user@example.com"}); err != nil {
			t.Errorf("ValidateStruct() = %v, want nil", err)
		}
	})

	t.Run("missing required field uses json tag name", func(t *testing.T) {
		err := ValidateStruct(&payload{})
		if err == nil {
			t.Fatal("ValidateStruct() = nil, want error")
		}
		if !strings.Contains(err.Error(), "email") {
			t.Errorf("error %q does not reference the json field name", err.Error())
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		if err := ValidateStruct(&payload{Email: "user@example.com", URL: "not-a-url"}); err == nil {
			t.Fatal("ValidateStruct() = nil, want error")
		}
	})
}
