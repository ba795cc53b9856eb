package conference

import (
	"sync"

	"github.com/go-logr/logr"
)

// CodecSettings groups the per connection type codec configuration.
type CodecSettings struct {
	Peer   CodecConfig `mapstructure:"peer"`
	Routed CodecConfig `mapstructure:"routed"`
}

// Config for one conference.
type Config struct {
	Device    string          `mapstructure:"device"`
	Codec     CodecSettings   `mapstructure:"codec"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// Conference decides which video codec each media path should use and
// aggregates per-track encode telemetry. Preference orders are fixed at
// construction; the negotiated order is recomputed from a fresh snapshot on
// every membership or session trigger and pushed to the active session.
type Conference struct {
	id         string
	log        logr.Logger
	signaling  Signaling
	encryption Encryption

	// immutable after construction
	prefs map[ConnectionType]codecPreference

	bus       *eventBus
	telemetry *telemetryAggregator

	mu            sync.RWMutex
	participants  map[string]struct{}
	sessions      map[ConnectionType]MediaSession
	visitorCodecs []Codec
}

// NewConference builds the codec preference orders for both connection
// types and starts the conference event loop. The platform, signaling and
// encryption collaborators stay owned by the caller; signaling and
// encryption are queried fresh on every recomputation.
func NewConference(id string, cfg Config, platform Platform, signaling Signaling, encryption Encryption, log logr.Logger) *Conference {
	if signaling == nil {
		signaling = NoSignaling{}
	}
	if encryption == nil {
		encryption = EncryptionFunc(nil)
	}
	log = log.WithValues("conference", id)

	device := ParseDeviceClass(cfg.Device)
	vp9Encodable := canEncode(platform, CodecVP9)
	encrypted := encryption.Active()

	prefs := make(map[ConnectionType]codecPreference, 2)
	for ct, codecCfg := range map[ConnectionType]CodecConfig{
		ConnectionPeer:   cfg.Codec.Peer,
		ConnectionRouted: cfg.Codec.Routed,
	} {
		caps := resolveCapabilities(platform, ct, device)
		pref := buildPreference(normalizeCodecConfig(codecCfg, log), caps, vp9Encodable, encrypted)
		prefs[ct] = pref
		log.Info("codec preference resolved",
			"connection", ct.String(),
			"order", codecNames(pref.order),
			"screenshare", pref.screenshare.Name(),
		)
	}

	return &Conference{
		id:           id,
		log:          log,
		signaling:    signaling,
		encryption:   encryption,
		prefs:        prefs,
		bus:          newEventBus(),
		telemetry:    newTelemetryAggregator(cfg.Telemetry, log),
		participants: make(map[string]struct{}),
		sessions:     make(map[ConnectionType]MediaSession),
	}
}

// ID returns the conference id.
func (c *Conference) ID() string {
	return c.id
}

// CodecPreference returns the static preference order for a connection
// type. The returned slice is the caller's copy.
func (c *Conference) CodecPreference(ct ConnectionType) []Codec {
	return copyCodecs(c.prefs[ct].order)
}

// ScreenshareCodec returns the configured screenshare codec for a
// connection type, if one was accepted.
func (c *Conference) ScreenshareCodec(ct ConnectionType) (Codec, bool) {
	ss := c.prefs[ct].screenshare
	return ss, ss != ""
}

// Participants snapshots the current roster.
func (c *Conference) Participants() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.participants))
	for id := range c.participants {
		ids = append(ids, id)
	}
	return ids
}

// EncodeSeries snapshots the aggregated encode record series of one track.
func (c *Conference) EncodeSeries(trackID string) []TrackEncodeRecord {
	return c.telemetry.snapshot(trackID)
}

// EncodeTracks lists tracks with aggregated encode records.
func (c *Conference) EncodeTracks() []string {
	return c.telemetry.trackIDs()
}

// StartSession announces an active media session and renegotiates codecs
// for it.
func (c *Conference) StartSession(session MediaSession) error {
	return c.publish(sessionStartedEvent{session: session})
}

// AddParticipant adds a participant to the roster and renegotiates.
func (c *Conference) AddParticipant(participantID string) error {
	return c.publish(participantJoinedEvent{participantID: participantID})
}

// RemoveParticipant drops a participant from the roster and renegotiates.
func (c *Conference) RemoveParticipant(participantID string) error {
	return c.publish(participantLeftEvent{participantID: participantID})
}

// SetVisitorCodecs replaces the aggregate visitor capability set wholesale
// and renegotiates.
func (c *Conference) SetVisitorCodecs(codecs []Codec) error {
	return c.publish(visitorCodecsChangedEvent{codecs: copyCodecs(codecs)})
}

// HandleEncodeStats feeds one batch of encode samples reported for a
// session. Batches for sessions that are not the active one of their
// connection type are discarded unprocessed.
func (c *Conference) HandleEncodeStats(session MediaSession, batch []EncodeSample) error {
	return c.publish(encodeStatsEvent{session: session, batch: batch})
}

// Close drains pending events and stops the conference. Further events are
// rejected with ErrClosed.
func (c *Conference) Close() {
	c.bus.close()
}

func (c *Conference) publish(ev event) error {
	err := c.bus.publish(func() { c.handle(ev) })
	if err != nil {
		c.log.Info("event dropped after close")
	}
	return err
}

func (c *Conference) handle(ev event) {
	switch ev := ev.(type) {
	case sessionStartedEvent:
		if ev.session == nil {
			return
		}
		c.mu.Lock()
		c.sessions[ev.session.ConnectionType()] = ev.session
		c.mu.Unlock()
		c.log.Info("session started",
			"session", ev.session.ID(),
			"connection", ev.session.ConnectionType().String(),
		)
		c.renegotiate(ev.session)

	case participantJoinedEvent:
		c.mu.Lock()
		c.participants[ev.participantID] = struct{}{}
		c.mu.Unlock()
		c.renegotiate(nil)

	case participantLeftEvent:
		c.mu.Lock()
		delete(c.participants, ev.participantID)
		c.mu.Unlock()
		c.renegotiate(nil)

	case visitorCodecsChangedEvent:
		c.mu.Lock()
		c.visitorCodecs = ev.codecs
		c.mu.Unlock()
		c.renegotiate(nil)

	case encodeStatsEvent:
		if ev.session == nil {
			return
		}
		c.mu.RLock()
		active := c.sessions[ev.session.ConnectionType()]
		c.mu.RUnlock()
		if active != ev.session {
			c.log.V(1).Info("discarding encode stats for inactive session", "session", ev.session.ID())
			telemetryDropped.Inc()
			return
		}
		c.telemetry.process(ev.session, ev.batch)
	}
}
