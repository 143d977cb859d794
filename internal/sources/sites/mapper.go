package sites

import (
	"strings"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// Requests converts the file into admission requests. File defaults fill empty
// fields; the admitter applies the process-wide defaults after that. Repeated
// domains keep their first entry.
func Requests(f File) []domain.AdmissionRequest {
	seen := make(map[string]struct{}, len(f.Sites))
	out := make([]domain.AdmissionRequest, 0, len(f.Sites))

	for _, s := range f.Sites {
		name := strings.TrimSpace(s.Domain)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		proto := s.Protocol
		if proto == "" {
			proto = f.Defaults.Protocol
		}
		hours := s.DurationHours
		if hours == 0 {
			hours = f.Defaults.DurationHours
		}

		out = append(out, domain.AdmissionRequest{
			Domain:        name,
			Protocol:      domain.Protocol(strings.ToLower(proto)),
			DurationHours: hours,
		})
	}
	return out
}
