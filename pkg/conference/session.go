package conference

import "github.com/pion/webrtc/v3"

// MediaSession is the transport-facing handle for one active media path.
// Implementations live in the transport layer; this package only pushes
// codec orders into them and resolves encode samples against their tracks.
type MediaSession interface {
	ID() string
	ConnectionType() ConnectionType
	// SetVideoCodecs pushes a negotiated codec order to the transport.
	// Fire and forget: the outcome is logged and never awaited, a later
	// push supersedes this one.
	SetVideoCodecs(codecs []Codec) error
	// TrackOf maps a synchronization source to its owning local track id.
	TrackOf(ssrc uint32) (trackID string, ok bool)
}

// Advertisement carries a remote participant's codec capability as relayed
// by signaling. A nil codec list means the participant advertised nothing;
// such participants never constrain negotiation.
type Advertisement struct {
	Codecs []Codec
}

// Advertise builds an Advertisement from an ordered codec list. A single
// element stands for the legacy single-codec advertisement.
func Advertise(codecs ...Codec) Advertisement {
	return Advertisement{Codecs: codecs}
}

// AdvertiseNone is the absent advertisement.
func AdvertiseNone() Advertisement {
	return Advertisement{}
}

func (a Advertisement) constrains() bool {
	return len(a.Codecs) > 0
}

// Signaling exposes the signaling layer's view of remote capability.
// Presence decoding happens entirely on the other side of this interface.
type Signaling interface {
	PeerCapability(participantID string, kind webrtc.RTPCodecType) Advertisement
}

// Encryption reports whether end to end encryption is active. Polled fresh
// on every recomputation, never cached.
type Encryption interface {
	Active() bool
}

// EncryptionFunc adapts a plain query function to Encryption.
type EncryptionFunc func() bool

func (f EncryptionFunc) Active() bool {
	if f == nil {
		return false
	}
	return f()
}

// NoSignaling is a Signaling for conferences whose participants never
// advertise capability.
type NoSignaling struct{}

func (NoSignaling) PeerCapability(string, webrtc.RTPCodecType) Advertisement {
	return AdvertiseNone()
}
