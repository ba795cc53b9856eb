package conference

import (
	"strings"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v3"
)

// StaticPlatform is a Platform with fixed codec sets. Used by tests and by
// deployments that pin capabilities in configuration instead of probing.
type StaticPlatform struct {
	Recv []Codec
	Send []Codec
}

func (s StaticPlatform) RecvCodecs(kind webrtc.RTPCodecType) []Codec {
	if kind != webrtc.RTPCodecTypeVideo {
		return nil
	}
	return s.Recv
}

func (s StaticPlatform) SendCodecs(kind webrtc.RTPCodecType) []Codec {
	if kind != webrtc.RTPCodecTypeVideo {
		return nil
	}
	return s.Send
}

type probedPlatform struct {
	codecs map[webrtc.RTPCodecType][]Codec
}

func (p *probedPlatform) RecvCodecs(kind webrtc.RTPCodecType) []Codec {
	return p.codecs[kind]
}

func (p *probedPlatform) SendCodecs(kind webrtc.RTPCodecType) []Codec {
	return p.codecs[kind]
}

// DiscoverPlatform queries the local media stack for usable codecs by
// generating a throwaway offer and reading back its rtpmap entries. Probe
// failures degrade to an empty platform, which capability resolution turns
// into the baseline fallback.
func DiscoverPlatform() Platform {
	codecs, err := probeCodecs()
	if err != nil {
		return &probedPlatform{}
	}
	return &probedPlatform{codecs: codecs}
}

func probeCodecs() (map[webrtc.RTPCodecType][]Codec, error) {
	me := &webrtc.MediaEngine{}
	if err := me.RegisterDefaultCodecs(); err != nil {
		return nil, errProbeFailed
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(me))
	pc, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, errProbeFailed
	}
	defer func() {
		_ = pc.Close()
	}()

	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		if _, err = pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendrecv,
		}); err != nil {
			return nil, errProbeFailed
		}
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, errProbeFailed
	}
	return parseOfferCodecs(offer.SDP)
}

func parseOfferCodecs(raw string) (map[webrtc.RTPCodecType][]Codec, error) {
	parsed := sdp.SessionDescription{}
	if err := parsed.Unmarshal([]byte(raw)); err != nil {
		return nil, errProbeFailed
	}

	codecs := make(map[webrtc.RTPCodecType][]Codec)
	for _, md := range parsed.MediaDescriptions {
		kind := webrtc.NewRTPCodecType(md.MediaName.Media)
		if kind != webrtc.RTPCodecTypeAudio && kind != webrtc.RTPCodecTypeVideo {
			continue
		}
		for _, attr := range md.Attributes {
			if attr.Key != "rtpmap" {
				continue
			}
			// value looks like "96 VP8/90000"
			fields := strings.Fields(attr.Value)
			if len(fields) != 2 {
				continue
			}
			name := strings.SplitN(fields[1], "/", 2)[0]
			c, err := ParseCodec(name)
			if err != nil {
				continue
			}
			if !containsCodec(codecs[kind], c) {
				codecs[kind] = append(codecs[kind], c)
			}
		}
	}
	return codecs, nil
}
