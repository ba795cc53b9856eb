package conference

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelemetry_CollapsesSimulcastLayers(t *testing.T) {
	c := newTestConference(t, Config{}, nil, nil)
	session := newFakeSession("routed", ConnectionRouted)
	session.tracks[1001] = "track-a"
	session.tracks[1002] = "track-a"
	require.NoError(t, c.StartSession(session))

	ts := time.Date(2021, 5, 4, 12, 0, 0, 0, time.UTC)
	batch := []EncodeSample{
		{SSRC: 1001, Codec: CodecVP8, EncodeTimeMs: 10, QualityLimitation: "none", Width: 320, Height: 180, Timestamp: ts},
		{SSRC: 1002, Codec: CodecVP8, EncodeTimeMs: 20, QualityLimitation: "cpu", Width: 1280, Height: 720, Timestamp: ts.Add(time.Second)},
	}
	require.NoError(t, c.HandleEncodeStats(session, batch))
	c.bus.sync()

	series := c.EncodeSeries("track-a")
	require.Len(t, series, 1)
	rec := series[0]
	assert.Equal(t, 15.0, rec.AvgEncodeTimeMs)
	assert.Equal(t, 720, rec.EncodeResolution, "best layer's min(width,height) wins")
	assert.Equal(t, "cpu", rec.QualityLimitation)
	assert.Equal(t, CodecVP8, rec.Codec)
	assert.Equal(t, ts.Add(time.Second), rec.Timestamp, "codec and timestamp come from the last sample")
}

func TestTelemetry_FirstNonNoneLimitationWins(t *testing.T) {
	rec := collapseSamples("track", []EncodeSample{
		{QualityLimitation: "none", Width: 100, Height: 100},
		{QualityLimitation: "bandwidth", Width: 100, Height: 100},
		{QualityLimitation: "cpu", Width: 100, Height: 100},
	})
	assert.Equal(t, "bandwidth", rec.QualityLimitation)

	rec = collapseSamples("track", []EncodeSample{
		{QualityLimitation: "none"},
		{QualityLimitation: ""},
	})
	assert.Equal(t, QualityLimitationNone, rec.QualityLimitation)
}

func TestTelemetry_BatchesAppendRecords(t *testing.T) {
	c := newTestConference(t, Config{}, nil, nil)
	session := newFakeSession("routed", ConnectionRouted)
	session.tracks[1] = "track-a"
	require.NoError(t, c.StartSession(session))

	for i := 0; i < 2; i++ {
		batch := []EncodeSample{{SSRC: 1, Codec: CodecVP8, EncodeTimeMs: float64(i), Width: 640, Height: 360}}
		require.NoError(t, c.HandleEncodeStats(session, batch))
	}
	c.bus.sync()

	series := c.EncodeSeries("track-a")
	require.Len(t, series, 2, "each batch appends, never overwrites")
	assert.Equal(t, 0.0, series[0].AvgEncodeTimeMs)
	assert.Equal(t, 1.0, series[1].AvgEncodeTimeMs)
	assert.Equal(t, []string{"track-a"}, c.EncodeTracks())
}

func TestTelemetry_InactiveSessionBatchesDiscarded(t *testing.T) {
	c := newTestConference(t, Config{}, nil, nil)
	active := newFakeSession("active", ConnectionRouted)
	background := newFakeSession("background", ConnectionRouted)
	background.tracks[1] = "track-a"
	require.NoError(t, c.StartSession(active))

	batch := []EncodeSample{{SSRC: 1, Codec: CodecVP8, EncodeTimeMs: 5, Width: 640, Height: 360}}
	require.NoError(t, c.HandleEncodeStats(background, batch))
	c.bus.sync()

	assert.Empty(t, c.EncodeSeries("track-a"))
}

func TestTelemetry_UnmappedSsrcSkipped(t *testing.T) {
	c := newTestConference(t, Config{}, nil, nil)
	session := newFakeSession("routed", ConnectionRouted)
	session.tracks[1] = "track-a"
	require.NoError(t, c.StartSession(session))

	batch := []EncodeSample{
		{SSRC: 1, Codec: CodecVP8, EncodeTimeMs: 5, Width: 640, Height: 360},
		{SSRC: 99, Codec: CodecVP8, EncodeTimeMs: 50, Width: 640, Height: 360},
	}
	require.NoError(t, c.HandleEncodeStats(session, batch))
	c.bus.sync()

	series := c.EncodeSeries("track-a")
	require.Len(t, series, 1)
	assert.Equal(t, 5.0, series[0].AvgEncodeTimeMs)
}

func TestTelemetry_SeriesLimitEvictsOldest(t *testing.T) {
	cfg := Config{Telemetry: TelemetryConfig{SeriesLimit: 3}}
	c := newTestConference(t, cfg, nil, nil)
	session := newFakeSession("routed", ConnectionRouted)
	session.tracks[1] = "track-a"
	require.NoError(t, c.StartSession(session))

	for i := 0; i < 5; i++ {
		batch := []EncodeSample{{SSRC: 1, Codec: CodecVP8, EncodeTimeMs: float64(i), Width: 640, Height: 360}}
		require.NoError(t, c.HandleEncodeStats(session, batch))
	}
	c.bus.sync()

	series := c.EncodeSeries("track-a")
	require.Len(t, series, 3)
	assert.Equal(t, 2.0, series[0].AvgEncodeTimeMs, "oldest records evicted first")
	assert.Equal(t, 4.0, series[2].AvgEncodeTimeMs)
}

func TestTelemetry_SnapshotIsACopy(t *testing.T) {
	agg := newTelemetryAggregator(TelemetryConfig{}, logr.Discard())
	agg.append(TrackEncodeRecord{TrackID: "track-a", AvgEncodeTimeMs: 1})

	snap := agg.snapshot("track-a")
	require.Len(t, snap, 1)
	snap[0].AvgEncodeTimeMs = 99
	assert.Equal(t, 1.0, agg.snapshot("track-a")[0].AvgEncodeTimeMs)
}
