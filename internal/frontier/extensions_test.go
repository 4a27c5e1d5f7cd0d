package frontier

import "testing"

func TestHasNonTextExtension(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"html page", "https://example.com/page.html", false},
		{"no extension", "https://example.com/articles/123", false},
		{"jpg image", "https://example.com/photo.jpg", true},
		{"uppercase extension", "https://example.com/photo.JPG", true},
		{"pdf document", "https://example.com/report.pdf", true},
		{"zip archive", "https://example.com/bundle.zip", true},
		{"json is non-text per glossary", "https://example.com/data.json", true},
		{"trailing slash", "https://example.com/news/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasNonTextExtension(tt.url); got != tt.want {
				t.Errorf("hasNonTextExtension(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestDomainForURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"simple domain", "https://example.com/path", "example.com", false},
		{"subdomain collapses to registrable domain", "https://news.example.co.uk/path", "example.co.uk", false},
		{"www subdomain", "https://www.example.com/path", "example.com", false},
		{"localhost falls back to host", "http://localhost:8080/path", "localhost", false},
		{"invalid url", "://bad", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domainForURL(tt.url)

			if tt.wantErr {
				if err == nil {
					t.Errorf("domainForURL(%q) expected error, got nil", tt.url)
				}
				return
			}

			if err != nil {
				t.Fatalf("domainForURL(%q) unexpected error: %v", tt.url, err)
			}

			if got != tt.want {
				t.Errorf("domainForURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
