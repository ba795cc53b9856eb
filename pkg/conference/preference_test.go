package conference

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func Test_buildPreference(t *testing.T) {
	caps := []Codec{CodecVP9, CodecVP8, CodecH264}

	tests := []struct {
		name      string
		setting   codecSetting
		caps      []Codec
		vp9Encode bool
		encrypted bool
		want      []Codec
	}{
		{
			name:      "Explicit order filtered to capability set",
			setting:   codecSetting{explicit: []Codec{CodecAV1, CodecVP8, CodecH264}},
			caps:      []Codec{CodecVP8, CodecH264},
			vp9Encode: true,
			want:      []Codec{CodecVP8, CodecH264},
		},
		{
			name:      "Explicit order wins over legacy fields",
			setting:   codecSetting{explicit: []Codec{CodecH264, CodecVP8}, preferred: CodecVP9, disabled: CodecH264},
			caps:      caps,
			vp9Encode: true,
			want:      []Codec{CodecH264, CodecVP8},
		},
		{
			name:      "Legacy disabled codec removed",
			setting:   codecSetting{disabled: CodecH264},
			caps:      caps,
			vp9Encode: true,
			want:      []Codec{CodecVP9, CodecVP8},
		},
		{
			name:      "Legacy disabled baseline codec is kept",
			setting:   codecSetting{disabled: BaselineCodec},
			caps:      caps,
			vp9Encode: true,
			want:      []Codec{CodecVP9, CodecVP8, CodecH264},
		},
		{
			name:      "Legacy preferred codec moves to the front",
			setting:   codecSetting{preferred: CodecH264},
			caps:      caps,
			vp9Encode: true,
			want:      []Codec{CodecH264, CodecVP9, CodecVP8},
		},
		{
			name:      "Legacy preferred codec outside capability set is ignored",
			setting:   codecSetting{preferred: CodecAV1},
			caps:      caps,
			vp9Encode: true,
			want:      []Codec{CodecVP9, CodecVP8, CodecH264},
		},
		{
			name:      "No configuration keeps capability order",
			setting:   codecSetting{},
			caps:      caps,
			vp9Encode: true,
			want:      []Codec{CodecVP9, CodecVP8, CodecH264},
		},
		{
			name:      "Decode-only VP9 moves to the tail",
			setting:   codecSetting{},
			caps:      caps,
			vp9Encode: false,
			want:      []Codec{CodecVP8, CodecH264, CodecVP9},
		},
		{
			name:      "Encryption removes VP9 entirely",
			setting:   codecSetting{},
			caps:      caps,
			vp9Encode: true,
			encrypted: true,
			want:      []Codec{CodecVP8, CodecH264},
		},
		{
			name:      "Encryption beats the decode-only demotion",
			setting:   codecSetting{preferred: CodecVP9},
			caps:      caps,
			vp9Encode: false,
			encrypted: true,
			want:      []Codec{CodecVP8, CodecH264},
		},
		{
			name:      "Explicit duplicates are dropped",
			setting:   codecSetting{explicit: []Codec{CodecVP8, CodecVP8, CodecH264}},
			caps:      caps,
			vp9Encode: true,
			want:      []Codec{CodecVP8, CodecH264},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			pref := buildPreference(tt.setting, tt.caps, tt.vp9Encode, tt.encrypted)
			assert.Equal(t, tt.want, pref.order)

			seen := map[Codec]bool{}
			for _, c := range pref.order {
				assert.False(t, seen[c], "duplicate codec %s", c)
				seen[c] = true
				assert.True(t, containsCodec(tt.caps, c), "codec %s not in capability set", c)
			}
		})
	}
}

func Test_buildPreference_screenshare(t *testing.T) {
	caps := []Codec{CodecVP9, CodecVP8}

	pref := buildPreference(codecSetting{screenshare: CodecVP9}, caps, true, false)
	assert.Equal(t, CodecVP9, pref.screenshare)

	pref = buildPreference(codecSetting{screenshare: CodecH264}, caps, true, false)
	assert.Empty(t, pref.screenshare, "screenshare codec outside the capability set must be ignored")
}

func Test_normalizeCodecConfig(t *testing.T) {
	log := logr.Discard()

	s := normalizeCodecConfig(CodecConfig{Order: []string{"av1", "vp8", "bogus"}}, log)
	assert.Equal(t, []Codec{CodecAV1, CodecVP8}, s.explicit)

	s = normalizeCodecConfig(CodecConfig{Preferred: "VP9", Disabled: "video/H264"}, log)
	assert.Nil(t, s.explicit)
	assert.Equal(t, CodecVP9, s.preferred)
	assert.Equal(t, CodecH264, s.disabled)

	s = normalizeCodecConfig(CodecConfig{Preferred: "bogus"}, log)
	assert.Empty(t, s.preferred)
}
