// Package server implements the websocket JSON-RPC signaling surface in
// front of the conference codec negotiation core.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/lucsky/cuid"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/ionorg/ion-conference/pkg/conference"
	"github.com/ionorg/ion-conference/pkg/logger"
)

// Config is the signal node configuration.
type Config struct {
	Conference conference.Config `mapstructure:"conference"`
	Log        logger.Config     `mapstructure:"log"`
	Signal     struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"signal"`
	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
}

// Join message sent when entering a conference.
type Join struct {
	Cid    string   `json:"cid"`
	Codecs []string `json:"codecs,omitempty"`
}

// JoinReply carries the assigned participant id and the current static
// preference order for the routed path.
type JoinReply struct {
	Pid         string   `json:"pid"`
	Order       []string `json:"order"`
	Screenshare string   `json:"screenshare,omitempty"`
}

// Advertise replaces the calling participant's codec capability.
type Advertise struct {
	Codecs []string `json:"codecs"`
}

// VisitorCodecs replaces the aggregate visitor capability set.
type VisitorCodecs struct {
	Codecs []string `json:"codecs"`
}

// Encryption toggles the conference end to end encryption flag.
type Encryption struct {
	Active bool `json:"active"`
}

// EncodeStats reports one batch of per-layer encoder samples. Tracks maps
// synchronization sources (as decimal strings) to local track ids.
type EncodeStats struct {
	Tracks  map[string]string `json:"tracks,omitempty"`
	Samples []EncodeSample    `json:"samples"`
}

// EncodeSample mirrors conference.EncodeSample on the wire.
type EncodeSample struct {
	Ssrc              uint32  `json:"ssrc"`
	Codec             string  `json:"codec"`
	EncodeTimeMs      float64 `json:"encodeTimeMs"`
	QualityLimitation string  `json:"qualityLimitationReason,omitempty"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
}

// Series requests the aggregated encode record series of one track.
type Series struct {
	TrackID string `json:"trackId"`
}

// JSONSignal handles the RPC methods of one websocket connection.
type JSONSignal struct {
	coordinator *Coordinator
	log         logr.Logger

	pid  string
	room *Room
}

// NewJSONSignal creates the handler for a freshly accepted connection.
func NewJSONSignal(c *Coordinator, log logr.Logger) *JSONSignal {
	return &JSONSignal{coordinator: c, log: log}
}

// Close detaches the connection's participant from its conference.
func (p *JSONSignal) Close() {
	if p.room != nil {
		p.room.Leave(p.pid)
		p.room = nil
	}
}

// Handle incoming RPC call events like join, advertise and encodestats.
func (p *JSONSignal) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	replyError := func(err error) {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    500,
			Message: fmt.Sprintf("%s", err),
		})
	}

	switch req.Method {
	case "join":
		var join Join
		if err := json.Unmarshal(*req.Params, &join); err != nil {
			p.log.Error(err, "join: error parsing params")
			replyError(err)
			break
		}
		if p.room != nil {
			replyError(errAlreadyJoined)
			break
		}

		p.pid = cuid.New()
		p.room = p.coordinator.GetRoom(join.Cid)
		p.room.Join(conn, p.pid, parseCodecList(join.Codecs, p.log))

		order := p.room.Conference().CodecPreference(conference.ConnectionRouted)
		reply := JoinReply{Pid: p.pid, Order: codecStrings(order)}
		if ss, ok := p.room.Conference().ScreenshareCodec(conference.ConnectionRouted); ok {
			reply.Screenshare = ss.Name()
		}
		_ = conn.Reply(ctx, req.ID, reply)

	case "leave":
		if p.room == nil {
			replyError(errNotJoined)
			break
		}
		p.room.Leave(p.pid)
		p.room = nil
		_ = conn.Reply(ctx, req.ID, true)

	case "advertise":
		var adv Advertise
		if err := p.parseInRoom(req, &adv); err != nil {
			replyError(err)
			break
		}
		p.room.Advertise(p.pid, parseCodecList(adv.Codecs, p.log))
		_ = conn.Reply(ctx, req.ID, true)

	case "visitorcodecs":
		var vc VisitorCodecs
		if err := p.parseInRoom(req, &vc); err != nil {
			replyError(err)
			break
		}
		if err := p.room.Conference().SetVisitorCodecs(parseCodecList(vc.Codecs, p.log)); err != nil {
			replyError(err)
			break
		}
		_ = conn.Reply(ctx, req.ID, true)

	case "encryption":
		var enc Encryption
		if err := p.parseInRoom(req, &enc); err != nil {
			replyError(err)
			break
		}
		p.room.SetEncrypted(enc.Active)
		_ = conn.Reply(ctx, req.ID, true)

	case "encodestats":
		var stats EncodeStats
		if err := p.parseInRoom(req, &stats); err != nil {
			replyError(err)
			break
		}
		if err := p.room.ReportEncodeStats(stats, p.log); err != nil {
			replyError(err)
			break
		}
		_ = conn.Reply(ctx, req.ID, true)

	case "series":
		var series Series
		if err := p.parseInRoom(req, &series); err != nil {
			replyError(err)
			break
		}
		_ = conn.Reply(ctx, req.ID, p.room.Conference().EncodeSeries(series.TrackID))
	}
}

func (p *JSONSignal) parseInRoom(req *jsonrpc2.Request, out interface{}) error {
	if p.room == nil {
		return errNotJoined
	}
	if req.Params == nil {
		return errMissingParams
	}
	if err := json.Unmarshal(*req.Params, out); err != nil {
		p.log.Error(err, "error parsing params", "method", req.Method)
		return err
	}
	return nil
}

func parseCodecList(names []string, log logr.Logger) []conference.Codec {
	codecs := make([]conference.Codec, 0, len(names))
	for _, name := range names {
		c, err := conference.ParseCodec(name)
		if err != nil {
			log.Info("ignoring unknown codec from client", "codec", name)
			continue
		}
		codecs = append(codecs, c)
	}
	return codecs
}

func codecStrings(codecs []conference.Codec) []string {
	names := make([]string, len(codecs))
	for i, c := range codecs {
		names[i] = c.Name()
	}
	return names
}

func parseSamples(stats EncodeStats, now time.Time, log logr.Logger) []conference.EncodeSample {
	samples := make([]conference.EncodeSample, 0, len(stats.Samples))
	for _, s := range stats.Samples {
		codec, err := conference.ParseCodec(s.Codec)
		if err != nil {
			log.Info("ignoring encode sample with unknown codec", "codec", s.Codec)
			continue
		}
		samples = append(samples, conference.EncodeSample{
			SSRC:              s.Ssrc,
			Codec:             codec,
			EncodeTimeMs:      s.EncodeTimeMs,
			QualityLimitation: s.QualityLimitation,
			Width:             s.Width,
			Height:            s.Height,
			Timestamp:         now,
		})
	}
	return samples
}

func parseSsrc(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
