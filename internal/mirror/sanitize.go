package mirror

import "strings"

// VendorPrefix marks paths owned by the engine or installed packages. The
// mirror must reflect only user-owned content, so inbound snapshots have
// every asset path under this prefix stripped before publication.
const VendorPrefix = "Packages/"

// SanitizeAssets removes vendor-owned paths from every asset category,
// preserving the relative order of the surviving paths. Categories left
// empty after stripping are kept so callers can still enumerate them.
func SanitizeAssets(assets map[string][]string) map[string][]string {
	if assets == nil {
		return nil
	}
	sanitized := make(map[string][]string, len(assets))
	for category, paths := range assets {
		kept := make([]string, 0, len(paths))
		for _, path := range paths {
			if strings.HasPrefix(path, VendorPrefix) {
				continue
			}
			kept = append(kept, path)
		}
		sanitized[category] = kept
	}
	return sanitized
}
