package api

import (
	"testing"
)

// Test the origin validation
func TestOriginValidator(t *testing.T) {
	testcases := []struct {
		origin string
		allow  bool
	}{
		// Host applications that are not browsers send no Origin
		{"", true},
		// `null` should be denied
		{"null", false},
		// Local pages should be allowed, both schemes, with or without port
		{"http://localhost", true},
		{"https://localhost", true},
		{"http://localhost:8000", true},
		{"https://localhost:8000", true},
		{"http://127.0.0.1", true},
		{"https://127.0.0.1", true},
		{"http://127.0.0.1:21327", true},
		// Non-local pages should be denied
		{"http://example.com", false},
		{"https://example.com", false},
		{"http://localhost.example.com", false},
		{"http://fakelocalhost", false},
		{"http://localhost.evil", false},
		{"http://127.0.0.2", false},
		// Other schemes should be denied
		{"file://localhost", false},
		{"ftp://localhost", false},
	}

	v, err := corsValidator()
	if err != nil {
		t.Fatalf("corsValidator: %s", err)
	}
	for _, tc := range testcases {
		if got := v(tc.origin); got != tc.allow {
			t.Errorf("origin %q: allowed = %v, want %v", tc.origin, got, tc.allow)
		}
	}
}
