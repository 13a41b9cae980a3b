package browser

import "strings"

// CleanPath normalizes a remote directory path: segments are non-empty and
// there is no leading or trailing slash. Root is "".
func CleanPath(p string) string {
	parts := strings.Split(p, "/")
	kept := parts[:0]

	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}

	return strings.Join(kept, "/")
}

// ParentPath strips the last non-empty segment. The parent of root is root.
func ParentPath(p string) string {
	clean := CleanPath(p)

	idx := strings.LastIndex(clean, "/")
	if idx < 0 {
		return ""
	}

	return clean[:idx]
}

// JoinPath appends name to dir.
func JoinPath(dir, name string) string {
	return CleanPath(dir + "/" + name)
}
