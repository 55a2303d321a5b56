package semdiff

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// DefaultScheme replaces "file" in the URIs of reported documents.
const DefaultScheme = "ai"

// documentURI resolves name against root, renders it as a file URI and
// swaps the scheme for scheme. An empty scheme keeps "file".
func documentURI(root, name, scheme string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("semdiff: document uri: empty project root")
	}
	p := filepath.ToSlash(filepath.Join(root, filepath.FromSlash(name)))
	if !strings.HasPrefix(p, "/") {
		// Windows volume paths.
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	if scheme != "" {
		u.Scheme = scheme
	}
	// Always render the empty authority, as file URIs do.
	return u.Scheme + "://" + u.EscapedPath(), nil
}
