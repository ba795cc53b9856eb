package conference

import "github.com/pion/webrtc/v3"

// renegotiate recomputes the codec order from the latest roster and
// capability snapshot and pushes it to the target session. With a nil
// target it falls back to the active routed session; without one the
// trigger is a no-op. Runs on the conference event loop only, so each
// computation fully supersedes the previous one.
func (c *Conference) renegotiate(target MediaSession) {
	negotiationRuns.Inc()

	session := target
	if session == nil {
		c.mu.RLock()
		session = c.sessions[ConnectionRouted]
		c.mu.RUnlock()
	}
	if session == nil {
		c.log.V(1).Info("no active session, skipping codec negotiation")
		negotiationNoSession.Inc()
		return
	}

	base := c.prefs[session.ConnectionType()].order
	if c.encryption.Active() && session.ConnectionType() == ConnectionRouted {
		// only the baseline codec interoperates with encryption on routed
		// paths
		base = []Codec{BaselineCodec}
	}

	// peer sessions negotiate codecs through their own offer/answer
	// exchange, so remote advertisements only constrain the routed path
	negotiated := base
	if session.ConnectionType() == ConnectionRouted {
		negotiated = c.intersectRemote(base)
	}
	if len(negotiated) == 0 {
		c.log.Info("codec negotiation eliminated every candidate, keeping previous order",
			"session", session.ID(),
			"base", codecNames(base),
		)
		negotiationEmpty.Inc()
		return
	}
	c.push(session, negotiated)
}

// intersectRemote keeps every codec of base that all constraining remote
// advertisements support, in base order. Participants that advertised
// nothing never eliminate a candidate, so endpoints without capability
// signaling stay compatible.
func (c *Conference) intersectRemote(base []Codec) []Codec {
	c.mu.RLock()
	participants := make([]string, 0, len(c.participants))
	for id := range c.participants {
		participants = append(participants, id)
	}
	visitors := c.visitorCodecs
	c.mu.RUnlock()

	constraints := make([][]Codec, 0, len(participants)+1)
	for _, id := range participants {
		if adv := c.signaling.PeerCapability(id, webrtc.RTPCodecTypeVideo); adv.constrains() {
			constraints = append(constraints, adv.Codecs)
		}
	}
	if len(visitors) > 0 {
		constraints = append(constraints, visitors)
	}

	negotiated := make([]Codec, 0, len(base))
	for _, codec := range base {
		supported := true
		for _, set := range constraints {
			if !containsCodec(set, codec) {
				supported = false
				break
			}
		}
		if supported {
			negotiated = append(negotiated, codec)
		}
	}
	return negotiated
}

// push hands the order to the transport session. Fire and forget: a failed
// push is only logged, correction happens through the next trigger.
func (c *Conference) push(session MediaSession, order []Codec) {
	if err := session.SetVideoCodecs(copyCodecs(order)); err != nil {
		c.log.Error(err, "codec order push failed", "session", session.ID())
		return
	}
	negotiationPushes.Inc()
	c.log.V(1).Info("codec order pushed",
		"session", session.ID(),
		"order", codecNames(order),
	)
}
