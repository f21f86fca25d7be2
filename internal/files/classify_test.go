package files

import (
	"testing"

	"filesrus/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		fileName string
		want     store.FileType
	}{
		{"gif mime", "image/gif", "anim.gif", store.TypeGIF},
		{"gif extension generic mime", "image/png", "anim.gif", store.TypeGIF},
		{"gif extension no mime", "", "anim.gif", store.TypeGIF},
		{"gif extension uppercase", "application/octet-stream", "ANIM.GIF", store.TypeGIF},
		{"png image", "image/png", "x.png", store.TypeImage},
		{"jpeg image", "image/jpeg", "photo.jpg", store.TypeImage},
		{"webp image", "image/webp", "photo.webp", store.TypeImage},
		{"mp3 audio", "audio/mpeg", "song.mp3", store.TypeAudio},
		{"wav audio", "audio/wav", "clip.wav", store.TypeAudio},
		{"mp4 video", "video/mp4", "clip.mp4", store.TypeVideo},
		{"webm video", "video/webm", "clip.webm", store.TypeVideo},
		{"m3u8 extension", "application/octet-stream", "stream.m3u8", store.TypeM3U8},
		{"m3u8 extension uppercase", "", "STREAM.M3U8", store.TypeM3U8},
		{"mpegurl mime", "application/vnd.apple.mpegurl", "stream.txt", store.TypeM3U8},
		{"x-mpegurl mime", "audio/x-mpegurl", "stream", store.TypeM3U8},
		{"pdf other", "application/pdf", "doc.pdf", store.TypeOther},
		{"no mime no extension", "", "README", store.TypeOther},
		{"empty everything", "", "", store.TypeOther},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.mimeType, tc.fileName)
			if got != tc.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tc.mimeType, tc.fileName, got, tc.want)
			}
		})
	}
}

// A .gif carrying a generic image MIME must classify as GIF, not Image: the
// GIF rule is evaluated before the generic image rule.
func TestClassify_GIFWinsOverImage(t *testing.T) {
	if got := Classify("image/gif", "x.gif"); got != store.TypeGIF {
		t.Errorf("expected GIF, got %q", got)
	}
	if got := Classify("image/png", "x.png"); got != store.TypeImage {
		t.Errorf("expected Image, got %q", got)
	}
}

func TestDeriveEpochName(t *testing.T) {
	tests := []struct {
		epochMs int64
		ext     string
		want    string
	}{
		{1700000000000, "mp4", "1700000000000.mp4"},
		{1700000000000, "", "1700000000000"},
		{1, "gif", "1.gif"},
	}

	for _, tc := range tests {
		if got := DeriveEpochName(tc.epochMs, tc.ext); got != tc.want {
			t.Errorf("DeriveEpochName(%d, %q) = %q, want %q", tc.epochMs, tc.ext, got, tc.want)
		}
	}
}

func TestExtOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"clip.mp4", "mp4"},
		{"archive.tar.gz", "gz"},
		{"UPPER.MP4", "mp4"},
		{"noext", ""},
		{"trailingdot.", ""},
		{"", ""},
	}

	for _, tc := range tests {
		if got := extOf(tc.name); got != tc.want {
			t.Errorf("extOf(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
