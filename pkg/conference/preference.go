package conference

import "github.com/go-logr/logr"

// CodecConfig is the per connection type codec configuration block. Order
// supersedes the legacy preferred/disabled pair when both are present.
type CodecConfig struct {
	Order       []string `mapstructure:"order"`
	Preferred   string   `mapstructure:"preferred"`
	Disabled    string   `mapstructure:"disabled"`
	Screenshare string   `mapstructure:"screenshare"`
}

// codecSetting is CodecConfig normalized into one tagged shape at
// construction, so preference resolution branches on a single input.
type codecSetting struct {
	explicit    []Codec // non-nil when an explicit order was supplied
	preferred   Codec
	disabled    Codec
	screenshare Codec
}

func normalizeCodecConfig(cfg CodecConfig, log logr.Logger) codecSetting {
	var s codecSetting
	for _, name := range cfg.Order {
		c, err := ParseCodec(name)
		if err != nil {
			log.Info("ignoring unknown codec in configured order", "codec", name)
			continue
		}
		s.explicit = append(s.explicit, c)
	}
	if len(cfg.Order) > 0 && s.explicit == nil {
		// an explicit order was supplied, keep it authoritative even if
		// every entry failed to parse
		s.explicit = []Codec{}
	}
	s.preferred = parseOptionalCodec(cfg.Preferred, "preferred", log)
	s.disabled = parseOptionalCodec(cfg.Disabled, "disabled", log)
	s.screenshare = parseOptionalCodec(cfg.Screenshare, "screenshare", log)
	return s
}

func parseOptionalCodec(name, field string, log logr.Logger) Codec {
	if name == "" {
		return ""
	}
	c, err := ParseCodec(name)
	if err != nil {
		log.Info("ignoring unknown codec in configuration", "field", field, "codec", name)
		return ""
	}
	return c
}

// codecPreference is the static per connection type preference order. Built
// once at conference construction, immutable afterward.
type codecPreference struct {
	order       []Codec
	screenshare Codec // empty when unset or rejected
}

// buildPreference resolves the configured codec input against the resolved
// capability set:
//  1. explicit order wins, filtered to capable codecs;
//  2. otherwise the legacy pair edits the capability order: the disabled
//     codec is dropped (the baseline codec never is), the preferred codec
//     moves to the front;
//  3. otherwise the capability order stands.
//
// Afterwards VP9 is demoted when the local encoder cannot produce it, and
// removed entirely while end to end encryption is active.
func buildPreference(setting codecSetting, caps []Codec, vp9Encodable, encrypted bool) codecPreference {
	var order []Codec
	switch {
	case setting.explicit != nil:
		order = intersectOrdered(dedupeCodecs(setting.explicit), caps)
	case setting.preferred != "" || setting.disabled != "":
		order = copyCodecs(caps)
		if setting.disabled != "" && setting.disabled != BaselineCodec {
			order = removeCodec(order, setting.disabled)
		}
		if setting.preferred != "" && containsCodec(order, setting.preferred) {
			order = append([]Codec{setting.preferred}, removeCodec(order, setting.preferred)...)
		}
	default:
		order = copyCodecs(caps)
	}

	switch {
	case encrypted:
		// VP9 does not interoperate with the insertable-streams encryption
		// path, drop it outright.
		order = removeCodec(order, CodecVP9)
	case !vp9Encodable && containsCodec(order, CodecVP9):
		// decode-only VP9: keep it advertised for compatibility but move it
		// behind every codec the local encoder can produce.
		order = append(removeCodec(order, CodecVP9), CodecVP9)
	}

	pref := codecPreference{order: order}
	if setting.screenshare != "" && containsCodec(caps, setting.screenshare) {
		pref.screenshare = setting.screenshare
	}
	return pref
}
