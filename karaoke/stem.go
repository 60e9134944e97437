package karaoke

import "encoding/json"

// stem.go implements the Traktor NI "stem" box payload: a fixed mastering
// DSP profile plus one colour label per non-mixdown stem, in the same
// order as Audio.Sources. The core ships a default profile and does not
// currently expose editing it (§4.5).

// StemColor is one of Traktor's fixed stem-label colours.
type StemColor string

const (
	StemColorRed    StemColor = "red"
	StemColorYellow StemColor = "yellow"
	StemColorGreen  StemColor = "green"
	StemColorBlue   StemColor = "blue"
)

var defaultStemColors = []StemColor{StemColorRed, StemColorYellow, StemColorGreen, StemColorBlue}

type stemLimiter struct {
	ThresholdDB float64 `json:"threshold_db"`
	CeilingDB   float64 `json:"ceiling_db"`
}

type stemCompressor struct {
	RatioToOne float64 `json:"ratio"`
	AttackMs   float64 `json:"attack_ms"`
	ReleaseMs  float64 `json:"release_ms"`
}

type stemLabel struct {
	Role  string    `json:"role"`
	Color StemColor `json:"color"`
}

type stemDocument struct {
	Version    string         `json:"version"`
	Compressor stemCompressor `json:"compressor"`
	Limiter    stemLimiter    `json:"limiter"`
	Stems      []stemLabel    `json:"stems"`
}

// defaultMasteringProfile is the fixed compressor/limiter setting shipped
// with every generated stem box.
func defaultMasteringProfile() (stemCompressor, stemLimiter) {
	return stemCompressor{RatioToOne: 2.0, AttackMs: 10, ReleaseMs: 120},
		stemLimiter{ThresholdDB: -1.0, CeilingDB: -0.3}
}

// EncodeStem renders the Traktor stem box for song, labelling every
// non-mixdown source in Audio.Sources order.
func EncodeStem(song *Song) ([]byte, error) {
	compressor, limiter := defaultMasteringProfile()
	doc := stemDocument{Version: "1", Compressor: compressor, Limiter: limiter}

	colorIdx := 0
	for _, src := range song.Audio.Sources {
		if src.Role == RoleMixdown {
			continue
		}
		color := StemColorBlue
		if colorIdx < len(defaultStemColors) {
			color = defaultStemColors[colorIdx]
		}
		colorIdx++
		doc.Stems = append(doc.Stems, stemLabel{Role: string(src.Role), Color: color})
	}

	return json.Marshal(doc)
}

// StemCount returns the number of stem labels encoded in a stem box
// payload, used by the validator (C11) to check it matches
// len(Audio.Sources) - 1 (mixdown excluded).
func StemCount(payload []byte) (int, error) {
	var doc stemDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return 0, err
	}
	return len(doc.Stems), nil
}
