package conference

import (
	"strings"

	"github.com/pion/webrtc/v3"
)

// Codec identifies a video codec by its RTP mime type.
type Codec string

const (
	CodecVP8  Codec = webrtc.MimeTypeVP8
	CodecVP9  Codec = webrtc.MimeTypeVP9
	CodecH264 Codec = webrtc.MimeTypeH264
	CodecAV1  Codec = "video/AV1"
)

// BaselineCodec is guaranteed interoperable across all endpoints. It is the
// capability fallback floor and the only codec used on routed paths while
// end to end encryption is active.
const BaselineCodec = CodecVP8

// Name returns the short codec name without the "video/" prefix.
func (c Codec) Name() string {
	if i := strings.IndexByte(string(c), '/'); i >= 0 {
		return string(c)[i+1:]
	}
	return string(c)
}

func (c Codec) String() string {
	return c.Name()
}

// ParseCodec resolves a codec name from configuration or signaling. Both
// short names ("vp8") and full mime types ("video/VP8") are accepted,
// case-insensitively.
func ParseCodec(s string) (Codec, error) {
	for _, c := range []Codec{CodecVP8, CodecVP9, CodecH264, CodecAV1} {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, c.Name()) {
			return c, nil
		}
	}
	return "", errUnknownCodecName
}

// ConnectionType tells which media path a session uses. It is fixed at
// session creation.
type ConnectionType int

const (
	// ConnectionPeer is a direct two-party path negotiated via its own
	// offer/answer exchange.
	ConnectionPeer ConnectionType = iota
	// ConnectionRouted relays media through a central distribution point.
	ConnectionRouted
)

func (t ConnectionType) String() string {
	if t == ConnectionPeer {
		return "peer"
	}
	return "routed"
}

// DeviceClass selects the capability target table for the local device.
type DeviceClass int

const (
	DeviceDesktop DeviceClass = iota
	DeviceMobile
)

func (d DeviceClass) String() string {
	if d == DeviceMobile {
		return "mobile"
	}
	return "desktop"
}

// ParseDeviceClass reads a device class from configuration, defaulting to
// desktop for unrecognized values.
func ParseDeviceClass(s string) DeviceClass {
	if strings.EqualFold(s, "mobile") {
		return DeviceMobile
	}
	return DeviceDesktop
}

func codecNames(codecs []Codec) []string {
	names := make([]string, len(codecs))
	for i, c := range codecs {
		names[i] = c.Name()
	}
	return names
}
