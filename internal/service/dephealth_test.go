// dephealth_test.go — unit-тесты для вспомогательных функций dephealth.
package service

import (
	"testing"
)

// TestHealthPath проверяет выбор пути HTTP-проверки по URL зависимости.
func TestHealthPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		expected string
	}{
		{
			name:     "JWKS URL — путь самого endpoint",
			input:    "https://idp.example.com/realms/garant/protocol/openid-connect/certs",
			fallback: "/",
			expected: "/realms/garant/protocol/openid-connect/certs",
		},
		{
			name:     "S3 endpoint без пути — fallback",
			input:    "https://s3.example.com",
			fallback: "/",
			expected: "/",
		},
		{
			name:     "корневой путь — fallback",
			input:    "http://minio:9000/",
			fallback: "/minio/health/live",
			expected: "/minio/health/live",
		},
		{
			name:     "шлюз Supabase Storage",
			input:    "https://project.supabase.co/storage/v1/s3",
			fallback: "/",
			expected: "/storage/v1/s3",
		},
		{
			name:     "некорректный URL — fallback",
			input:    "://bad",
			fallback: "/health",
			expected: "/health",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := healthPath(tt.input, tt.fallback)
			if result != tt.expected {
				t.Errorf("healthPath(%q) = %q, ожидалось %q", tt.input, result, tt.expected)
			}
		})
	}
}
