package triage

import "math"

// Aggregation weights. They sum to 1.
const (
	AdversarialWeight = 0.4
	ResponderWeight   = 0.3
	ClassifierWeight  = 0.3

	// UnsafeMultiplier discounts the weighted sum when the reviewer judged the
	// response unsafe. It is applied after weighting and before clamping.
	UnsafeMultiplier = 0.5
)

// Per-stage confidence defaults. "Default" is used when an adapter succeeds
// without reporting a confidence; "Fallback" when the stage failed, timed out
// or was skipped.
const (
	DefaultConfidence             = 0.5
	RetrieverDefaultConfidence    = 1.0
	FallbackConfidence            = 0.0
	AdversarialFallbackConfidence = 0.5
)

// ConfidenceInputs are the values the aggregator reads.
type ConfidenceInputs struct {
	Classifier  float64
	Responder   float64
	Adversarial float64
	Verdict     VerdictLabel
}

// Breakdown explains how a system confidence was derived.
type Breakdown struct {
	Classifier    float64 `json:"classifier"`
	Responder     float64 `json:"responder"`
	Adversarial   float64 `json:"adversarial"`
	WeightedSum   float64 `json:"weighted_sum"`
	UnsafePenalty bool    `json:"unsafe_penalty"`
	Unclamped     float64 `json:"unclamped"`
	System        float64 `json:"system"`
}

// Aggregate combines stage confidences into one system confidence:
//
//	0.4*adversarial + 0.3*responder + 0.3*classifier, halved on an unsafe
//	verdict, clamped to [0, 1].
//
// Non-finite inputs count as zero. Aggregate has no side effects.
func Aggregate(in ConfidenceInputs) Breakdown {
	cls := finite(in.Classifier)
	rsp := finite(in.Responder)
	adv := finite(in.Adversarial)

	sum := AdversarialWeight*adv + ResponderWeight*rsp + ClassifierWeight*cls

	b := Breakdown{
		Classifier:  cls,
		Responder:   rsp,
		Adversarial: adv,
		WeightedSum: sum,
		Unclamped:   sum,
	}
	if in.Verdict == VerdictUnsafe {
		b.UnsafePenalty = true
		b.Unclamped = sum * UnsafeMultiplier
	}
	b.System = clamp01(b.Unclamped)
	return b
}

// SystemConfidence is Aggregate(in).System.
func SystemConfidence(in ConfidenceInputs) float64 {
	return Aggregate(in).System
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
