// Package preview drives type-dispatched playback for stored files: it
// resolves a file type to one of a closed set of player kinds and tracks the
// session-local playback state each player carries.
package preview

import "strings"

// PlayerKind identifies which preview player handles a stored file type.
type PlayerKind int

const (
	PlayerUnsupported PlayerKind = iota
	PlayerAudio
	PlayerVideo
	PlayerAnimatedImage
	PlayerAdaptiveStream
	PlayerStaticImage
)

func (k PlayerKind) String() string {
	switch k {
	case PlayerAudio:
		return "audio"
	case PlayerVideo:
		return "video"
	case PlayerAnimatedImage:
		return "animated-image"
	case PlayerAdaptiveStream:
		return "adaptive-stream"
	case PlayerStaticImage:
		return "static-image"
	default:
		return "unsupported"
	}
}

// Playable reports whether the player carries playback-mode state. Static
// images bypass playback mode entirely; unsupported files render a
// placeholder.
func (k PlayerKind) Playable() bool {
	switch k {
	case PlayerAudio, PlayerVideo, PlayerAnimatedImage, PlayerAdaptiveStream:
		return true
	}
	return false
}

// ResolvePlayer maps a stored file type to its player kind. Matching is
// case-insensitive on the stored key or value.
func ResolvePlayer(fileType string) PlayerKind {
	switch strings.ToLower(strings.TrimSpace(fileType)) {
	case "audio":
		return PlayerAudio
	case "video":
		return PlayerVideo
	case "gif":
		return PlayerAnimatedImage
	case "m3u8", "m3u8 playlist":
		return PlayerAdaptiveStream
	case "image":
		return PlayerStaticImage
	default:
		return PlayerUnsupported
	}
}

// PlaybackMode is the user-selected looping behavior of a player.
type PlaybackMode string

const (
	ModeOnce   PlaybackMode = "Once"
	ModeRepeat PlaybackMode = "Repeat"
	ModeLoop   PlaybackMode = "Loop"
)

// ParseMode parses a playback mode case-insensitively. The second return
// value reports whether the input named a known mode.
func ParseMode(s string) (PlaybackMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "once":
		return ModeOnce, true
	case "repeat":
		return ModeRepeat, true
	case "loop":
		return ModeLoop, true
	}
	return ModeRepeat, false
}

// NativeLoop reports whether native looping is enabled for the mode.
// Repeat and Loop are behaviorally identical.
func (m PlaybackMode) NativeLoop() bool {
	return m == ModeRepeat || m == ModeLoop
}
