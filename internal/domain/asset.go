package domain

import "fmt"

// MediaKind enumerates displayable media types.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// MediaReference points at a displayable or playable result.
type MediaReference struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"kind"`
}

// AspectRatio is the target width:height of generated media.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectWide      AspectRatio = "4:3"
	AspectTall      AspectRatio = "3:4"
)

// ImageAspectRatios lists the ratios accepted for image generation.
var ImageAspectRatios = []AspectRatio{AspectSquare, AspectLandscape, AspectPortrait, AspectWide, AspectTall}

// VideoAspectRatios lists the ratios accepted for video generation.
var VideoAspectRatios = []AspectRatio{AspectLandscape, AspectPortrait}

// ParseAspectRatio validates raw against allowed. An empty value yields def.
func ParseAspectRatio(raw string, def AspectRatio, allowed []AspectRatio) (AspectRatio, error) {
	if raw == "" {
		return def, nil
	}
	for _, a := range allowed {
		if string(a) == raw {
			return a, nil
		}
	}
	return "", &ValidationError{Message: fmt.Sprintf("Unsupported aspect ratio %q.", raw)}
}
