// Package mediax inspects media blobs locally: content sniffing for every
// file, plus header details for the formats the remote service accepts.
package mediax

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-audio/wav"
)

// Info describes a sniffed blob. Family is "image", "audio", "video" or
// empty when the content is not recognised as media.
type Info struct {
	MIME      string
	Extension string
	Family    string

	Width, Height int

	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// Probe sniffs data. It never fails; unknown content yields
// application/octet-stream with an empty Family.
func Probe(data []byte) Info {
	m := mimetype.Detect(data)
	info := Info{
		MIME:      m.String(),
		Extension: m.Extension(),
		Family:    family(m.String()),
	}

	switch {
	case m.Is("image/png"):
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			info.Width, info.Height = cfg.Width, cfg.Height
		}
	case m.Is("audio/wav"):
		d := wav.NewDecoder(bytes.NewReader(data))
		if d.IsValidFile() {
			info.SampleRate = int(d.SampleRate)
			info.Channels = int(d.NumChans)
			info.BitDepth = int(d.BitDepth)
			frameBytes := info.Channels * info.BitDepth / 8
			if err := d.FwdToPCM(); err == nil && frameBytes > 0 && info.SampleRate > 0 {
				frames := d.PCMSize / frameBytes
				info.Duration = time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
			}
		}
	}
	return info
}

// Matches reports whether the sniffed family agrees with the declared one.
// Unrecognised content never matches.
func (i Info) Matches(declared string) bool {
	return i.Family != "" && i.Family == declared
}

// String is a one-line summary such as "audio/wav 44100Hz 2ch 16bit 1.5s".
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.MIME)
	switch {
	case i.Width > 0:
		fmt.Fprintf(&b, " %dx%d", i.Width, i.Height)
	case i.SampleRate > 0:
		fmt.Fprintf(&b, " %dHz %dch %dbit %s", i.SampleRate, i.Channels, i.BitDepth, i.Duration.Round(time.Millisecond))
	}
	return b.String()
}

func family(mime string) string {
	prefix, _, _ := strings.Cut(mime, "/")
	switch prefix {
	case "image", "audio", "video":
		return prefix
	}
	return ""
}
