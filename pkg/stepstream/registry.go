package stepstream

import "regexp"

// DefaultStepName labels all content found outside any registered tag,
// including the entire stream when no tag mapping is configured.
const DefaultStepName = "Answer"

// tagNamePattern is the author-facing grammar for tag names: a letter
// followed by letters, digits, underscores, or hyphens. Case-sensitive.
const tagNamePattern = `^[A-Za-z][A-Za-z0-9_-]*$`

var tagNameRE = regexp.MustCompile(tagNamePattern)

// Registry holds the validated mapping from tag name to step label.
// It is built once by NewRegistry and never mutated afterward.
type Registry struct {
	labels map[string]string
}

// NewRegistry validates a tag mapping and builds a registry from it.
// A nil or empty mapping is valid and recognizes no tags. Distinct
// tags may map to the same label. Returns a *TagConfigError naming
// the offending entry when a tag name violates the grammar or a step
// label is empty.
func NewRegistry(tags map[string]string) (*Registry, error) {
	labels := make(map[string]string, len(tags))

	for tag, label := range tags {
		if !tagNameRE.MatchString(tag) {
			return nil, &TagConfigError{
				Tag:   tag,
				Label: label,
				Err:   ErrInvalidTagName,
			}
		}
		if label == "" {
			return nil, &TagConfigError{
				Tag:   tag,
				Label: label,
				Err:   ErrInvalidStepLabel,
			}
		}
		labels[tag] = label
	}

	return &Registry{labels: labels}, nil
}

// Lookup returns the step label registered for a tag name.
func (r *Registry) Lookup(tag string) (string, bool) {
	label, ok := r.labels[tag]

	return label, ok
}

// Len returns the number of registered tags.
func (r *Registry) Len() int {
	return len(r.labels)
}

// Default returns the step label applied to untagged content.
func (r *Registry) Default() string {
	return DefaultStepName
}
