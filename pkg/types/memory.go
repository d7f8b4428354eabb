// Package types defines the core data structures for the Keepsake memory system.
// These types represent captured memories, focus goals, and user preferences.
package types

import (
	"fmt"
	"strings"
	"time"
)

// ContentType classifies what kind of capture a memory is.
type ContentType string

// Content type constants. The set is closed and fixed at creation.
const (
	ContentText       ContentType = "text"
	ContentVoice      ContentType = "voice"
	ContentPhoto      ContentType = "photo"
	ContentLink       ContentType = "link"
	ContentScreenshot ContentType = "screenshot"
)

// ValidContentTypes lists every accepted content type for validation.
var ValidContentTypes = []ContentType{
	ContentText,
	ContentVoice,
	ContentPhoto,
	ContentLink,
	ContentScreenshot,
}

// IsValidContentType reports whether t is one of the closed content type set.
func IsValidContentType(t ContentType) bool {
	for _, v := range ValidContentTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Memory represents one captured unit of content: a note, voice clip, photo,
// link, or screenshot. Exactly one of the type-specific field groups
// (AudioURI, ImageURI, LinkURL) is populated, matching ContentType.
type Memory struct {
	// Core identification fields
	ID          string      `json:"id"`           // Unique identifier (uuid)
	Content     string      `json:"content"`      // Free-text body
	ContentType ContentType `json:"content_type"` // text, voice, photo, link, screenshot
	CreatedAt   time.Time   `json:"created_at"`   // Capture time, immutable once set

	// Optional geolocation, attached at capture time only when the location
	// preference is enabled and the provider grants access.
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	LocationName string   `json:"location_name,omitempty"`

	// Media references: local URIs handed to us by the capture layer.
	AudioURI string `json:"audio_uri,omitempty"` // present for voice
	ImageURI string `json:"image_uri,omitempty"` // present for photo/screenshot

	// Link fields, present for link captures.
	LinkURL     string `json:"link_url,omitempty"`
	LinkTitle   string `json:"link_title,omitempty"`
	LinkPreview string `json:"link_preview,omitempty"`

	// FocusTags is a free-text tag string used for focus-goal matching.
	FocusTags string `json:"focus_tags,omitempty"`

	// View tracking. ViewCount only increases.
	ViewCount    int        `json:"view_count"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
}

// MediaRef returns the type-specific reference for this memory: the audio URI
// for voice, the image URI for photo/screenshot, the link URL for links, and
// "" for plain text.
func (m *Memory) MediaRef() string {
	switch m.ContentType {
	case ContentVoice:
		return m.AudioURI
	case ContentPhoto, ContentScreenshot:
		return m.ImageURI
	case ContentLink:
		return m.LinkURL
	}
	return ""
}

// Validate checks the memory against its structural invariants:
//   - content type must be one of the closed set
//   - content must be non-empty unless a media/link reference carries the capture
//   - only the field group matching the content type may be populated
func (m *Memory) Validate() error {
	if !IsValidContentType(m.ContentType) {
		return fmt.Errorf("invalid content type: %q", m.ContentType)
	}

	if strings.TrimSpace(m.Content) == "" && m.MediaRef() == "" {
		return fmt.Errorf("content is required for %s memories without a media reference", m.ContentType)
	}

	if m.AudioURI != "" && m.ContentType != ContentVoice {
		return fmt.Errorf("audio_uri set on %s memory", m.ContentType)
	}
	if m.ImageURI != "" && m.ContentType != ContentPhoto && m.ContentType != ContentScreenshot {
		return fmt.Errorf("image_uri set on %s memory", m.ContentType)
	}
	if m.LinkURL != "" && m.ContentType != ContentLink {
		return fmt.Errorf("link_url set on %s memory", m.ContentType)
	}
	if (m.LinkTitle != "" || m.LinkPreview != "") && m.ContentType != ContentLink {
		return fmt.Errorf("link metadata set on %s memory", m.ContentType)
	}

	if (m.Latitude == nil) != (m.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be set together")
	}

	if m.ViewCount < 0 {
		return fmt.Errorf("view count must not be negative")
	}

	return nil
}
