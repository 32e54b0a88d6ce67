// Package models defines the domain types shared by the session orchestrator:
// media kinds and directions, artifacts, capacity quotes, operation outcomes
// and audit records.
package models

import (
	"fmt"
	"strings"
)

// MediaKind is the declared media family of a file artifact. It doubles as
// the name of the tab the operator works in.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// MediaKinds lists every supported kind in display order.
var MediaKinds = []MediaKind{MediaImage, MediaAudio, MediaVideo}

func ParseMediaKind(s string) (MediaKind, error) {
	k := MediaKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown media kind %q (want image, audio or video)", s)
	}
	return k, nil
}

func (k MediaKind) Valid() bool {
	switch k {
	case MediaImage, MediaAudio, MediaVideo:
		return true
	}
	return false
}

// Extension is the container the remote service produces for this kind.
func (k MediaKind) Extension() string {
	switch k {
	case MediaAudio:
		return "wav"
	case MediaVideo:
		return "mp4"
	default:
		return "png"
	}
}

// EncodedFileName is the download name of an encode result.
func (k MediaKind) EncodedFileName() string {
	return fmt.Sprintf("encoded_%s.%s", k, k.Extension())
}

// Direction says whether a payload is being hidden or recovered.
type Direction string

const (
	DirectionEncode Direction = "encode"
	DirectionDecode Direction = "decode"
)

func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DirectionEncode, DirectionDecode:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q (want encode or decode)", s)
}
