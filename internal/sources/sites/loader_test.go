package sites

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

func TestLoaderLoadYAML(t *testing.T) {
	path := writeFile(t, "sites.yaml", `---
defaults:
  protocol: https
  duration_hours: 12
sites:
  - example.com
  - domain: api.example.com
    protocol: http
    duration_hours: 6
`)

	f, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f.Sites) != 2 {
		t.Fatalf("Load() returned %d sites, want 2", len(f.Sites))
	}
	if f.Sites[0].Domain != "example.com" {
		t.Errorf("scalar entry = %+v", f.Sites[0])
	}
	if f.Sites[1].Protocol != "http" || f.Sites[1].DurationHours != 6 {
		t.Errorf("mapping entry = %+v", f.Sites[1])
	}
	if f.Defaults.DurationHours != 12 {
		t.Errorf("defaults = %+v", f.Defaults)
	}
}

func TestLoaderLoadText(t *testing.T) {
	path := writeFile(t, "sites.txt", "example.com\n\n# comment\nother.org # trailing\n")

	f, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f.Sites) != 2 || f.Sites[1].Domain != "other.org" {
		t.Errorf("Load() = %+v", f.Sites)
	}
}

func TestLoaderErrors(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load(); err == nil {
		t.Error("Load() expected error for missing file")
	}

	path := writeFile(t, "bad.yaml", "sites: [example.com\n")
	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Load() expected error for malformed yaml")
	}
}

func TestRequests(t *testing.T) {
	f := File{
		Defaults: Defaults{Protocol: "HTTPS", DurationHours: 24},
		Sites: []Site{
			{Domain: "example.com"},
			{Domain: "  "},
			{Domain: "api.example.com", Protocol: "http", DurationHours: 2},
			{Domain: "EXAMPLE.com", DurationHours: 99},
		},
	}

	got := Requests(f)
	want := []domain.AdmissionRequest{
		{Domain: "example.com", Protocol: domain.ProtocolHTTPS, DurationHours: 24},
		{Domain: "api.example.com", Protocol: domain.ProtocolHTTP, DurationHours: 2},
	}

	if len(got) != len(want) {
		t.Fatalf("Requests() returned %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Requests()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
