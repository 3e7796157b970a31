package variant

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonic/resonate/internal/formula"
	"github.com/halcyonic/resonate/internal/rng"
)

// SpawnConditions gate whether a spawn attempt may proceed.
type SpawnConditions struct {
	// EntropyThreshold is the minimum entropy for any spawn. Default: 0.015.
	EntropyThreshold float64 `json:"entropy_threshold" yaml:"entropy_threshold"`

	// ThetaRange bounds both the bifurcation band around theta=0.5 and the
	// magnitude of random theta perturbation. Default: 0.1.
	ThetaRange float64 `json:"theta_range" yaml:"theta_range"`

	// MaxGeneration caps spawn lineage depth. Default: 3.
	MaxGeneration int `json:"max_generation" yaml:"max_generation"`
}

// DefaultSpawnConditions returns the default spawn gating parameters.
func DefaultSpawnConditions() SpawnConditions {
	return SpawnConditions{
		EntropyThreshold: 0.015,
		ThetaRange:       0.1,
		MaxGeneration:    3,
	}
}

// baseMutationRate scales entropy into the capability mutation probability:
// p = 0.15 * entropy * 10.
const baseMutationRate = 0.15

// Spawner probabilistically produces new variants. It is stateless apart
// from its injected random source; identical sequences of draws yield
// identical spawn decisions.
type Spawner struct {
	conditions SpawnConditions
	random     rng.Source
	score      formula.ScoreFunc
}

// NewSpawner creates a spawner. score is the pluggable fitness function; a
// nil score falls back to the QCTF formula with CI defaulting to the
// attractor value.
func NewSpawner(conditions SpawnConditions, random rng.Source, score formula.ScoreFunc) *Spawner {
	if score == nil {
		score = func(p formula.Parameters) float64 {
			return formula.Evaluate(p, formula.Attractor)
		}
	}
	return &Spawner{conditions: conditions, random: random, score: score}
}

// Conditions returns the spawn gating parameters in use.
func (s *Spawner) Conditions() SpawnConditions {
	return s.conditions
}

// Spawn attempts to birth a variant near a bifurcation point. It returns
// nil when the conditions are not met or the probability draw fails;
// absence of spawn conditions is a normal outcome, not an error.
//
// parent may be nil for a parentless spawn; generation is the depth of the
// new variant's parent (the child gets generation+1).
func (s *Spawner) Spawn(p formula.Parameters, parent *Variant, generation int) *Variant {
	theta := formula.Value(p.Theta, formula.DefaultTheta)
	entropy := p.Entropy

	nearBifurcation := math.Abs(theta-0.5) < s.conditions.ThetaRange
	entropySpike := entropy > 2*s.conditions.EntropyThreshold

	if !nearBifurcation && !entropySpike {
		return nil
	}
	if entropy <= s.conditions.EntropyThreshold {
		return nil
	}
	if generation >= s.conditions.MaxGeneration {
		return nil
	}

	// p = min(1, (1 - e^(-entropy/threshold)) * (1 + 2*max(0, entropy-0.02)))
	prob := (1 - math.Exp(-entropy/s.conditions.EntropyThreshold)) * noveltyFactor(entropy)
	if prob > 1 {
		prob = 1
	}
	if s.random.Float64() >= prob {
		return nil
	}

	newTheta := s.nextTheta(theta, nearBifurcation, entropySpike)

	scoreParams := p
	scoreParams.Theta = formula.Ptr(newTheta)
	score := s.score(scoreParams)

	// Variants nearer the bifurcation point get a small alignment bonus.
	base := formula.Value(p.BaseQEAI, formula.DefaultBaseQEAI)
	closeness := 1 - math.Min(1, math.Abs(newTheta-0.5)/0.4)
	qeai := math.Min(0.999, base+0.05*closeness)

	var parentID string
	var caps []string
	if parent != nil {
		parentID = parent.ID
		caps = parent.CloneCapabilities()
	}
	caps = s.mutateCapabilities(caps, entropy)

	now := time.Now()
	id := uuid.NewString()
	return &Variant{
		ID:           id,
		Name:         fmt.Sprintf("variant-g%d-%s", generation+1, id[:8]),
		QCTFScore:    score,
		Theta:        newTheta,
		Entropy:      entropy,
		QEAI:         qeai,
		Capabilities: caps,
		Weight:       1.0,
		CreatedAt:    now,
		UpdatedAt:    now,
		ParentID:     parentID,
		Generation:   generation + 1,
	}
}

// nextTheta picks the child's phase parameter. On a pure entropy spike the
// child moves 40% of the way toward the bifurcation point; otherwise it is
// perturbed by a random signed offset within ThetaRange. Always clamped to
// [0.1, 0.9].
func (s *Spawner) nextTheta(theta float64, nearBifurcation, entropySpike bool) float64 {
	if entropySpike && !nearBifurcation {
		return formula.ClampTheta(theta + 0.4*(0.5-theta))
	}
	offset := (2*s.random.Float64() - 1) * s.conditions.ThetaRange
	return formula.ClampTheta(theta + offset)
}

// mutateCapabilities applies at most one capability mutation. With
// probability 0.15*entropy*10 a random catalog capability is toggled:
// removed if present (protected capabilities excepted), added if absent.
func (s *Spawner) mutateCapabilities(caps []string, entropy float64) []string {
	prob := math.Min(1, baseMutationRate*entropy*10)
	if s.random.Float64() >= prob {
		return caps
	}

	pick := Catalog[int(s.random.Float64()*float64(len(Catalog)))%len(Catalog)]

	for i, c := range caps {
		if c == pick {
			if protected[pick] {
				return caps
			}
			return append(caps[:i:i], caps[i+1:]...)
		}
	}
	return append(caps, pick)
}

// noveltyFactor boosts spawn probability for high-entropy states:
// 1 + 2*max(0, entropy-0.02). Shared with the resonance novelty boost.
func noveltyFactor(entropy float64) float64 {
	return 1 + 2*math.Max(0, entropy-0.02)
}
