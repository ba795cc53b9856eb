package conference

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/go-logr/logr"
)

// QualityLimitationNone means the encoder reported no quality limitation.
const QualityLimitationNone = "none"

// EncodeSample is one encoder performance report for a single
// synchronization source, i.e. one simulcast layer of a track. Samples are
// consumed within the aggregation pass that received them.
type EncodeSample struct {
	SSRC              uint32
	Codec             Codec
	EncodeTimeMs      float64
	QualityLimitation string
	Width             int
	Height            int
	Timestamp         time.Time
}

// TrackEncodeRecord collapses one batch's simulcast layers of a track into
// a single aggregated record.
type TrackEncodeRecord struct {
	TrackID           string
	Codec             Codec
	AvgEncodeTimeMs   float64
	EncodeResolution  int
	QualityLimitation string
	Timestamp         time.Time
}

// TelemetryConfig tunes encode telemetry retention.
type TelemetryConfig struct {
	// SeriesLimit bounds the per-track record series. Oldest records are
	// evicted once the limit is reached. Zero selects the default.
	SeriesLimit int `mapstructure:"serieslimit"`
}

const defaultSeriesLimit = 512

// telemetryAggregator keeps a rolling window of aggregated encode records
// per local track. Records are appended by the conference event loop only;
// readers get copies.
type telemetryAggregator struct {
	log   logr.Logger
	limit int

	mu     sync.RWMutex
	series map[string]*deque.Deque
}

func newTelemetryAggregator(cfg TelemetryConfig, log logr.Logger) *telemetryAggregator {
	limit := cfg.SeriesLimit
	if limit <= 0 {
		limit = defaultSeriesLimit
	}
	return &telemetryAggregator{
		log:    log,
		limit:  limit,
		series: make(map[string]*deque.Deque),
	}
}

// process aggregates one batch of samples for the given session. Samples
// whose synchronization source the session cannot map are dropped.
func (a *telemetryAggregator) process(session MediaSession, batch []EncodeSample) {
	groups := make(map[string][]EncodeSample)
	tracks := make([]string, 0, len(batch))
	for _, sample := range batch {
		trackID, ok := session.TrackOf(sample.SSRC)
		if !ok {
			a.log.V(1).Info("dropping encode sample for unmapped ssrc", "ssrc", sample.SSRC)
			continue
		}
		if _, seen := groups[trackID]; !seen {
			tracks = append(tracks, trackID)
		}
		groups[trackID] = append(groups[trackID], sample)
	}

	for _, trackID := range tracks {
		a.append(collapseSamples(trackID, groups[trackID]))
	}
	telemetryBatches.Inc()
}

// collapseSamples reduces the simulcast layers of one track to a single
// record. The best actually-encoding layer wins the resolution, encode time
// is averaged across layers, and the first limited layer names the
// limitation.
func collapseSamples(trackID string, samples []EncodeSample) TrackEncodeRecord {
	rec := TrackEncodeRecord{
		TrackID:           trackID,
		QualityLimitation: QualityLimitationNone,
	}
	var totalEncodeTime float64
	for _, s := range samples {
		layerRes := s.Width
		if s.Height < layerRes {
			layerRes = s.Height
		}
		if layerRes > rec.EncodeResolution {
			rec.EncodeResolution = layerRes
		}
		totalEncodeTime += s.EncodeTimeMs
		if rec.QualityLimitation == QualityLimitationNone &&
			s.QualityLimitation != "" && s.QualityLimitation != QualityLimitationNone {
			rec.QualityLimitation = s.QualityLimitation
		}
		rec.Codec = s.Codec
		rec.Timestamp = s.Timestamp
	}
	rec.AvgEncodeTimeMs = totalEncodeTime / float64(len(samples))
	return rec
}

func (a *telemetryAggregator) append(rec TrackEncodeRecord) {
	a.mu.Lock()
	d := a.series[rec.TrackID]
	if d == nil {
		d = &deque.Deque{}
		a.series[rec.TrackID] = d
	}
	d.PushBack(rec)
	for d.Len() > a.limit {
		d.PopFront()
	}
	a.mu.Unlock()
	telemetryRecords.Inc()
}

// snapshot copies the record series of one track for out-of-loop readers.
func (a *telemetryAggregator) snapshot(trackID string) []TrackEncodeRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	d := a.series[trackID]
	if d == nil {
		return nil
	}
	out := make([]TrackEncodeRecord, d.Len())
	for i := 0; i < d.Len(); i++ {
		out[i] = d.At(i).(TrackEncodeRecord)
	}
	return out
}

// trackIDs lists tracks that have at least one aggregated record.
func (a *telemetryAggregator) trackIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.series))
	for id := range a.series {
		ids = append(ids, id)
	}
	return ids
}
