package obs

import "strings"

// CanonicalPath collapses resource identifiers so metric labels stay
// low-cardinality. "/books/01ABC/" becomes "/books/:id/".
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	trailing := strings.HasSuffix(path, "/") && path != "/"
	trimmed := strings.Trim(path, "/")
	parts := strings.Split(trimmed, "/")

	switch {
	case len(parts) == 2 && parts[0] == "books":
		parts[1] = ":id"
	case len(parts) == 4 && parts[0] == "admin" && parts[1] == "users" && parts[3] == "permissions":
		parts[2] = ":id"
	default:
		return path
	}

	out := "/" + strings.Join(parts, "/")
	if trailing {
		out += "/"
	}
	return out
}
