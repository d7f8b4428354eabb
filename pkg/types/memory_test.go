package types

import (
	"strings"
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func TestMemoryValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		memory  Memory
		wantErr string // substring of the expected error, "" for valid
	}{
		{
			name:   "valid text memory",
			memory: Memory{ID: "a", Content: "Buy milk", ContentType: ContentText, CreatedAt: now},
		},
		{
			name:   "valid voice memory with empty content",
			memory: Memory{ID: "b", ContentType: ContentVoice, AudioURI: "file:///rec/1.m4a", CreatedAt: now},
		},
		{
			name:   "valid link memory",
			memory: Memory{ID: "c", Content: "read later", ContentType: ContentLink, LinkURL: "https://example.com", LinkTitle: "Example", CreatedAt: now},
		},
		{
			name:   "valid screenshot with image uri",
			memory: Memory{ID: "d", ContentType: ContentScreenshot, ImageURI: "file:///shots/1.png", CreatedAt: now},
		},
		{
			name:    "unknown content type",
			memory:  Memory{ID: "e", Content: "x", ContentType: "video", CreatedAt: now},
			wantErr: "invalid content type",
		},
		{
			name:    "empty text memory",
			memory:  Memory{ID: "f", Content: "   ", ContentType: ContentText, CreatedAt: now},
			wantErr: "content is required",
		},
		{
			name:    "audio uri on text memory",
			memory:  Memory{ID: "g", Content: "x", ContentType: ContentText, AudioURI: "file:///rec/2.m4a", CreatedAt: now},
			wantErr: "audio_uri",
		},
		{
			name:    "image uri on voice memory",
			memory:  Memory{ID: "h", ContentType: ContentVoice, AudioURI: "file:///rec/3.m4a", ImageURI: "file:///p.png", CreatedAt: now},
			wantErr: "image_uri",
		},
		{
			name:    "link metadata on photo memory",
			memory:  Memory{ID: "i", ContentType: ContentPhoto, ImageURI: "file:///p.png", LinkTitle: "nope", CreatedAt: now},
			wantErr: "link metadata",
		},
		{
			name:    "latitude without longitude",
			memory:  Memory{ID: "j", Content: "x", ContentType: ContentText, Latitude: f64(59.43), CreatedAt: now},
			wantErr: "must be set together",
		},
		{
			name:    "negative view count",
			memory:  Memory{ID: "k", Content: "x", ContentType: ContentText, ViewCount: -1, CreatedAt: now},
			wantErr: "view count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.memory.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestMediaRef(t *testing.T) {
	tests := []struct {
		memory Memory
		want   string
	}{
		{Memory{ContentType: ContentText, Content: "note"}, ""},
		{Memory{ContentType: ContentVoice, AudioURI: "file:///a.m4a"}, "file:///a.m4a"},
		{Memory{ContentType: ContentPhoto, ImageURI: "file:///p.jpg"}, "file:///p.jpg"},
		{Memory{ContentType: ContentScreenshot, ImageURI: "file:///s.png"}, "file:///s.png"},
		{Memory{ContentType: ContentLink, LinkURL: "https://example.com"}, "https://example.com"},
	}

	for _, tt := range tests {
		if got := tt.memory.MediaRef(); got != tt.want {
			t.Errorf("MediaRef(%s) = %q, want %q", tt.memory.ContentType, got, tt.want)
		}
	}
}

func TestGoalKeywords(t *testing.T) {
	g := FocusGoal{Name: "Work  Travel"}
	kw := g.Keywords()
	if len(kw) != 2 || kw[0] != "work" || kw[1] != "travel" {
		t.Errorf("Keywords() = %v, want [work travel]", kw)
	}
}

func TestContentTypeConstants(t *testing.T) {
	want := map[ContentType]string{
		ContentText:       "text",
		ContentVoice:      "voice",
		ContentPhoto:      "photo",
		ContentLink:       "link",
		ContentScreenshot: "screenshot",
	}
	if len(ValidContentTypes) != len(want) {
		t.Fatalf("ValidContentTypes has %d entries, want %d", len(ValidContentTypes), len(want))
	}
	for _, ct := range ValidContentTypes {
		if string(ct) != want[ct] {
			t.Errorf("content type %q serializes as %q", want[ct], ct)
		}
	}
}
