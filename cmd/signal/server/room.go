package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/go-logr/logr"
	"github.com/pion/webrtc/v3"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/ionorg/ion-conference/pkg/conference"
)

var (
	errAlreadyJoined = errors.New("already joined a conference")
	errNotJoined     = errors.New("no conference joined for this connection")
	errMissingParams = errors.New("missing params")
)

// Coordinator owns the conferences served by this node and hands out rooms
// on demand.
type Coordinator struct {
	log      logr.Logger
	cfg      conference.Config
	platform conference.Platform

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewCoordinator probes platform capability once and serves every
// conference from that result.
func NewCoordinator(cfg conference.Config, log logr.Logger) *Coordinator {
	return &Coordinator{
		log:      log,
		cfg:      cfg,
		platform: conference.DiscoverPlatform(),
		rooms:    make(map[string]*Room),
	}
}

// GetRoom returns the room for a conference id, creating it on first use.
func (c *Coordinator) GetRoom(id string) *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room, ok := c.rooms[id]; ok {
		return room
	}
	room := newRoom(id, c.cfg, c.platform, c.log)
	room.onEmpty = func() {
		c.mu.Lock()
		delete(c.rooms, id)
		c.mu.Unlock()
		room.conf.Close()
	}
	c.rooms[id] = room
	return room
}

// Room binds one conference to its routed transport session and the
// signaling-side capability registry.
type Room struct {
	id  string
	log logr.Logger

	conf     *conference.Conference
	session  *routedSession
	registry *capabilityRegistry

	encMu     sync.RWMutex
	encrypted bool

	mu          sync.Mutex
	subscribers map[string]*jsonrpc2.Conn
	onEmpty     func()
}

func newRoom(id string, cfg conference.Config, platform conference.Platform, log logr.Logger) *Room {
	r := &Room{
		id:          id,
		log:         log.WithValues("room", id),
		registry:    newCapabilityRegistry(),
		subscribers: make(map[string]*jsonrpc2.Conn),
	}
	r.conf = conference.NewConference(id, cfg, platform, r.registry, conference.EncryptionFunc(r.isEncrypted), log)
	r.session = newRoutedSession(id+"-routed", r.notifyOrder)
	if err := r.conf.StartSession(r.session); err != nil {
		r.log.Error(err, "starting routed session")
	}
	return r
}

// Conference exposes the negotiation core behind this room.
func (r *Room) Conference() *conference.Conference {
	return r.conf
}

// Join registers the participant's advertisement and adds it to the roster.
func (r *Room) Join(conn *jsonrpc2.Conn, pid string, codecs []conference.Codec) {
	r.registry.set(pid, conference.Advertise(codecs...))
	r.mu.Lock()
	r.subscribers[pid] = conn
	r.mu.Unlock()
	if err := r.conf.AddParticipant(pid); err != nil {
		r.log.Error(err, "adding participant", "pid", pid)
	}
	r.log.Info("participant joined", "pid", pid, "codecs", codecs)
}

// Leave removes the participant; the last leaver tears the room down.
func (r *Room) Leave(pid string) {
	r.registry.remove(pid)
	r.mu.Lock()
	delete(r.subscribers, pid)
	empty := len(r.subscribers) == 0
	onEmpty := r.onEmpty
	r.mu.Unlock()
	if err := r.conf.RemoveParticipant(pid); err != nil {
		r.log.Error(err, "removing participant", "pid", pid)
	}
	r.log.Info("participant left", "pid", pid)
	if empty && onEmpty != nil {
		onEmpty()
	}
}

// Advertise replaces one participant's capability. The updated constraint
// takes effect on the next negotiation trigger.
func (r *Room) Advertise(pid string, codecs []conference.Codec) {
	r.registry.set(pid, conference.Advertise(codecs...))
}

// SetEncrypted flips the end to end encryption flag polled by the
// negotiation core.
func (r *Room) SetEncrypted(active bool) {
	r.encMu.Lock()
	r.encrypted = active
	r.encMu.Unlock()
}

func (r *Room) isEncrypted() bool {
	r.encMu.RLock()
	defer r.encMu.RUnlock()
	return r.encrypted
}

// ReportEncodeStats merges the reported ssrc→track mapping into the routed
// session and feeds the sample batch to the aggregator.
func (r *Room) ReportEncodeStats(stats EncodeStats, log logr.Logger) error {
	for raw, trackID := range stats.Tracks {
		ssrc, err := parseSsrc(raw)
		if err != nil {
			return err
		}
		r.session.mapTrack(ssrc, trackID)
	}
	return r.conf.HandleEncodeStats(r.session, parseSamples(stats, time.Now(), log))
}

// notifyOrder fans a freshly pushed codec order out to every connected
// client, debounced so bursts of membership changes collapse into one
// notification.
func (r *Room) notifyOrder(order []conference.Codec) {
	r.mu.Lock()
	conns := make([]*jsonrpc2.Conn, 0, len(r.subscribers))
	for _, conn := range r.subscribers {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	params := map[string]interface{}{"order": codecStrings(order)}
	for _, conn := range conns {
		if err := conn.Notify(context.Background(), "codecs", params); err != nil {
			r.log.Error(err, "error sending codec order")
		}
	}
}

// routedSession is the in-process MediaSession for the routed path. It
// records pushed orders and owns the ssrc→track association reported by
// clients.
type routedSession struct {
	id string

	mu     sync.Mutex
	order  []conference.Codec
	tracks map[uint32]string

	notify  func([]conference.Codec)
	bounced func(func())
}

func newRoutedSession(id string, notify func([]conference.Codec)) *routedSession {
	return &routedSession{
		id:      id,
		tracks:  make(map[uint32]string),
		notify:  notify,
		bounced: debounce.New(100 * time.Millisecond),
	}
}

func (s *routedSession) ID() string {
	return s.id
}

func (s *routedSession) ConnectionType() conference.ConnectionType {
	return conference.ConnectionRouted
}

func (s *routedSession) SetVideoCodecs(codecs []conference.Codec) error {
	s.mu.Lock()
	s.order = codecs
	s.mu.Unlock()
	if s.notify != nil {
		s.bounced(func() { s.notify(codecs) })
	}
	return nil
}

// Order returns the most recently pushed codec order.
func (s *routedSession) Order() []conference.Codec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]conference.Codec, len(s.order))
	copy(out, s.order)
	return out
}

func (s *routedSession) TrackOf(ssrc uint32) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trackID, ok := s.tracks[ssrc]
	return trackID, ok
}

func (s *routedSession) mapTrack(ssrc uint32, trackID string) {
	s.mu.Lock()
	s.tracks[ssrc] = trackID
	s.mu.Unlock()
}

// capabilityRegistry is the signaling-side store of remote advertisements.
type capabilityRegistry struct {
	mu             sync.RWMutex
	advertisements map[string]conference.Advertisement
}

func newCapabilityRegistry() *capabilityRegistry {
	return &capabilityRegistry{advertisements: make(map[string]conference.Advertisement)}
}

func (c *capabilityRegistry) PeerCapability(pid string, kind webrtc.RTPCodecType) conference.Advertisement {
	if kind != webrtc.RTPCodecTypeVideo {
		return conference.AdvertiseNone()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.advertisements[pid]
}

func (c *capabilityRegistry) set(pid string, adv conference.Advertisement) {
	c.mu.Lock()
	c.advertisements[pid] = adv
	c.mu.Unlock()
}

func (c *capabilityRegistry) remove(pid string) {
	c.mu.Lock()
	delete(c.advertisements, pid)
	c.mu.Unlock()
}
