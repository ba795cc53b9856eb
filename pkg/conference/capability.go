package conference

import "github.com/pion/webrtc/v3"

// Platform reports what the local endpoint can do with media. Receive and
// send sets are distinct: an endpoint may decode a codec it cannot encode.
type Platform interface {
	// RecvCodecs returns the codecs the platform can receive for a media
	// kind. May be empty when discovery is unavailable.
	RecvCodecs(kind webrtc.RTPCodecType) []Codec
	// SendCodecs returns the codecs the platform can encode and send.
	SendCodecs(kind webrtc.RTPCodecType) []Codec
}

// Capability target tables. The per-device, per-path orders encode which
// codec trade-off wins before any platform filtering: desktops prefer VP9
// quality, mobile peer paths prefer hardware H264, mobile routed paths fall
// back to VP8 for battery and interop.
var (
	desktopTargetOrder      = []Codec{CodecVP9, CodecVP8, CodecH264, CodecAV1}
	mobilePeerTargetOrder   = []Codec{CodecH264, CodecVP8, CodecVP9, CodecAV1}
	mobileRoutedTargetOrder = []Codec{CodecVP8, CodecVP9, CodecH264, CodecAV1}
)

func targetOrder(ct ConnectionType, dc DeviceClass) []Codec {
	if dc == DeviceMobile {
		if ct == ConnectionPeer {
			return mobilePeerTargetOrder
		}
		return mobileRoutedTargetOrder
	}
	return desktopTargetOrder
}

// resolveCapabilities intersects the target table for the connection type
// and device class with the platform's receive set, preserving table order.
// The result is never empty: an unavailable or empty platform set degrades
// to the baseline codec alone.
func resolveCapabilities(p Platform, ct ConnectionType, dc DeviceClass) []Codec {
	var supported []Codec
	if p != nil {
		supported = p.RecvCodecs(webrtc.RTPCodecTypeVideo)
	}
	if len(supported) == 0 {
		return []Codec{BaselineCodec}
	}
	caps := intersectOrdered(targetOrder(ct, dc), supported)
	if len(caps) == 0 {
		return []Codec{BaselineCodec}
	}
	return caps
}

// canEncode reports whether the local platform can encode c. The send set
// does not vary between peer and routed connections, so a single answer
// covers both.
func canEncode(p Platform, c Codec) bool {
	if p == nil {
		return false
	}
	return containsCodec(p.SendCodecs(webrtc.RTPCodecTypeVideo), c)
}
