package engine

const fnv64Offset = 1469598103934665603
const fnv64Prime = 1099511628211

// Weights are the per-kind costs of the threat table. Zero fields fall back
// to the defaults.
type Weights struct {
	Five                int `yaml:"five" json:"five" validate:"gte=0"`
	StraightFour        int `yaml:"straight_four" json:"straight_four" validate:"gte=0"`
	Four                int `yaml:"four" json:"four" validate:"gte=0"`
	FourBroken          int `yaml:"four_broken" json:"four_broken" validate:"gte=0"`
	Three               int `yaml:"three" json:"three" validate:"gte=0"`
	ThreeBroken         int `yaml:"three_broken" json:"three_broken" validate:"gte=0"`
	Two                 int `yaml:"two" json:"two" validate:"gte=0"`
	NearEnemy           int `yaml:"near_enemy" json:"near_enemy" validate:"gte=0"`
	ThreeAndFour        int `yaml:"three_and_four" json:"three_and_four" validate:"gte=0"`
	ThreeAndThree       int `yaml:"three_and_three" json:"three_and_three" validate:"gte=0"`
	ThreeAndThreeBroken int `yaml:"three_and_three_broken" json:"three_and_three_broken" validate:"gte=0"`
}

func DefaultWeights() Weights {
	return Weights{
		Five:                100000,
		StraightFour:        50000,
		Four:                10000,
		FourBroken:          8000,
		Three:               1000,
		ThreeBroken:         200,
		Two:                 50,
		NearEnemy:           10,
		ThreeAndFour:        45000,
		ThreeAndThree:       40000,
		ThreeAndThreeBroken: 5000,
	}
}

// Resolved fills zero fields from DefaultWeights.
func (w Weights) Resolved() Weights {
	defaults := DefaultWeights()
	if w == (Weights{}) {
		return defaults
	}
	fill := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&w.Five, defaults.Five)
	fill(&w.StraightFour, defaults.StraightFour)
	fill(&w.Four, defaults.Four)
	fill(&w.FourBroken, defaults.FourBroken)
	fill(&w.Three, defaults.Three)
	fill(&w.ThreeBroken, defaults.ThreeBroken)
	fill(&w.Two, defaults.Two)
	fill(&w.NearEnemy, defaults.NearEnemy)
	fill(&w.ThreeAndFour, defaults.ThreeAndFour)
	fill(&w.ThreeAndThree, defaults.ThreeAndThree)
	fill(&w.ThreeAndThreeBroken, defaults.ThreeAndThreeBroken)
	return w
}

// Signature fingerprints the weights. Cached search results are only
// reused under the signature that produced them.
func (w Weights) Signature() uint64 {
	w = w.Resolved()
	hash := uint64(fnv64Offset)
	for _, v := range []int{
		w.Five, w.StraightFour, w.Four, w.FourBroken, w.Three, w.ThreeBroken,
		w.Two, w.NearEnemy, w.ThreeAndFour, w.ThreeAndThree, w.ThreeAndThreeBroken,
	} {
		hash = hashUint64(hash, uint64(v))
	}
	return hash
}

func hashUint64(hash, value uint64) uint64 {
	for i := 0; i < 8; i++ {
		hash ^= (value >> (8 * i)) & 0xff
		hash *= fnv64Prime
	}
	return hash
}
