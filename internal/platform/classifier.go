package platform

import (
	"net/url"
	"strings"
)

// Info is the result of classifying a URL
type Info struct {
	Name string `json:"platform"`
	// ContentID is nil when the matching rule has no identifier group.
	ContentID    *string           `json:"content_id"`
	CanonicalURL string            `json:"canonical_url"`
	OriginalURL  string            `json:"original_url"`
	Metadata     map[string]string `json:"metadata"`
}

// Classify returns the name of the first platform whose rules match the URL
func Classify(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	d, _, ok := match(Preprocess(raw))
	if !ok {
		return "", false
	}
	return d.Name, true
}

// Extract classifies the URL and pulls out its identifier, auxiliary fields
// and canonical form.
func Extract(raw string) (*Info, bool) {
	original := strings.TrimSpace(raw)
	if original == "" {
		return nil, false
	}
	processed := Preprocess(original)

	d, groups, ok := match(processed)
	if !ok {
		return nil, false
	}

	info := &Info{
		Name:         d.Name,
		CanonicalURL: processed,
		OriginalURL:  original,
		Metadata:     make(map[string]string),
	}
	for i, role := range groups.rule.Roles {
		if i+1 >= len(groups.values) {
			break
		}
		value := groups.values[i+1]
		switch role {
		case RoleContentID:
			id := value
			info.ContentID = &id
		default:
			info.Metadata[string(role)] = value
		}
	}
	if canonical, ok := canonicalURL(d, info.ContentID); ok {
		info.CanonicalURL = canonical
	}
	return info, true
}

// Normalize returns the canonical URL for a supported URL
func Normalize(raw string) (string, bool) {
	info, ok := Extract(raw)
	if !ok {
		return "", false
	}
	return info.CanonicalURL, true
}

type matchedRule struct {
	rule   Rule
	values []string
}

// match walks the table in order and returns the first rule that matches
func match(processed string) (Definition, matchedRule, bool) {
	for _, d := range definitions {
		for _, r := range d.Rules {
			if values := r.Pattern.FindStringSubmatch(processed); values != nil {
				return d, matchedRule{rule: r, values: values}, true
			}
		}
	}
	return Definition{}, matchedRule{}, false
}

func canonicalURL(d Definition, id *string) (string, bool) {
	if d.Template == "" || id == nil || *id == "" {
		return "", false
	}
	if !strings.Contains(d.Template, "{id}") {
		return "", false
	}
	return strings.ReplaceAll(d.Template, "{id}", *id), true
}

// Platforms lists the supported platform names in match order
func Platforms() []string {
	names := make([]string, 0, len(definitions))
	for _, d := range definitions {
		names = append(names, d.Name)
	}
	return names
}

// IsSupported reports whether name is a supported platform
func IsSupported(name string) bool {
	_, ok := lookup(strings.ToLower(name))
	return ok
}

// Domains returns the known domain aliases of a platform
func Domains(name string) []string {
	d, ok := lookup(strings.ToLower(name))
	if !ok {
		return nil
	}
	return append([]string(nil), d.Aliases...)
}

// IsDirectLink reports whether the URL points straight at a video file
func IsDirectLink(raw string) bool {
	name, ok := Classify(raw)
	return ok && name == Direct
}

// VideoExtension returns the file extension of a direct link, including the
// leading dot.
func VideoExtension(raw string) (string, bool) {
	if !IsDirectLink(raw) {
		return "", false
	}
	path := Preprocess(raw)
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)

	best := ""
	for _, ext := range VideoExtensions {
		if strings.HasSuffix(path, ext) && len(ext) > len(best) {
			best = ext
		}
	}
	return best, best != ""
}

// FileName returns the last path segment of a URL
func FileName(raw string) string {
	path := Preprocess(raw)
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return path
}
