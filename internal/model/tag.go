package model

import (
	"strings"
	"time"
)

// Tag represents a context tag like @home, @work, @untracked
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the tag name with @ prefix if not already present
func (t *Tag) DisplayName() string {
	return TagLabel(t.Name)
}

// TagLabel prefixes a bare tag name with @.
func TagLabel(name string) string {
	if strings.HasPrefix(name, "@") {
		return name
	}
	return "@" + name
}

// NormalizeTag strips the @ prefix and surrounding space so "@Work " and
// "work" name the same tag.
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
