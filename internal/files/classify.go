package files

import (
	"strconv"
	"strings"

	"filesrus/internal/store"
)

// Classify maps a MIME type and file name to one of the six file types.
// Rules are evaluated top to bottom and the first match wins. The GIF rule
// must run before the generic image rule so a .gif carrying a generic image
// MIME still classifies as GIF.
func Classify(mimeType, name string) store.FileType {
	ext := extOf(name)

	switch {
	case strings.HasPrefix(mimeType, "image/gif") || ext == "gif":
		return store.TypeGIF
	case strings.HasPrefix(mimeType, "image/"):
		return store.TypeImage
	case strings.HasPrefix(mimeType, "audio/"):
		return store.TypeAudio
	case strings.HasPrefix(mimeType, "video/"):
		return store.TypeVideo
	case ext == "m3u8" || strings.Contains(mimeType, "mpegurl"):
		return store.TypeM3U8
	default:
		return store.TypeOther
	}
}

// DeriveEpochName builds the canonical stored name from the creation
// timestamp in milliseconds plus the original extension. Without an
// extension the dot is omitted.
func DeriveEpochName(epochMs int64, ext string) string {
	name := strconv.FormatInt(epochMs, 10)
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// extOf returns the lower-cased extension of a file name without the leading
// dot, or "" when there is none.
func extOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
