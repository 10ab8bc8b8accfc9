// Package guardrail verifies crosswind claims in assistant answers against
// a recomputation from the tracked METAR and runway before anything reaches
// the user. The 3-knot rule: a claim further than the threshold from the
// computed value fails and must be regenerated.
package guardrail

import (
	"fmt"

	"flight_assistant/internal/metar"
	"flight_assistant/internal/wind"
)

// Verification statuses.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// DefaultThresholdKt is the allowed gap between a claim and the computed
// crosswind. It absorbs display rounding and minor gust drift.
const DefaultThresholdKt = 3.0

// Config is the verification policy. It is fixed at construction.
type Config struct {
	ThresholdKt     float64
	UseGust         bool
	MagneticEnabled bool
	Variation       *float64 // overrides the station variation table
}

// Result is the outcome of one verification.
type Result struct {
	Status           string         `json:"status"`
	AgentClaim       *float64       `json:"agent_claim"`
	Truth            *float64       `json:"mathematical_truth"`
	Discrepancy      *float64       `json:"discrepancy"`
	Reason           string         `json:"reason"`
	ReflectionPrompt string         `json:"reflection_prompt,omitempty"`
	WindData         map[string]any `json:"wind_data,omitempty"`
	Calculation      map[string]any `json:"calculation_details,omitempty"`
}

// Passed reports whether the result allows the answer through unchanged.
func (r *Result) Passed() bool { return r.Status == StatusPassed }

// Verifier applies the policy to answers.
type Verifier struct {
	cfg Config
}

// New builds a Verifier; a zero threshold means DefaultThresholdKt.
func New(cfg Config) *Verifier {
	if cfg.ThresholdKt == 0 {
		cfg.ThresholdKt = DefaultThresholdKt
	}
	return &Verifier{cfg: cfg}
}

// ThresholdKt returns the active tolerance.
func (v *Verifier) ThresholdKt() float64 { return v.cfg.ThresholdKt }

func skipped(claim *float64, reason string) *Result {
	return &Result{Status: StatusSkipped, AgentClaim: claim, Reason: reason}
}

// Verify checks the crosswind claim in answer against the tracked METAR and
// runway heading. Missing inputs make the verification skipped, never an
// error: skipping is a first-class outcome.
func (v *Verifier) Verify(answer string, rec *metar.Record, runwayHdg *float64) *Result {
	claim := wind.ExtractClaim(answer)
	if claim == nil {
		return skipped(nil, "no crosswind claim detected in response")
	}
	if rec == nil {
		return skipped(claim, "no tracked METAR")
	}
	if runwayHdg == nil {
		return skipped(claim, "no tracked runway heading")
	}
	if rec.WindDirection == nil {
		return skipped(claim, "wind direction unavailable")
	}
	if rec.WindSpeed == nil {
		return skipped(claim, "wind speed unavailable")
	}

	dirTrue := float64(*rec.WindDirection)
	speed := float64(*rec.WindSpeed)
	speedSource := "sustained"
	if v.cfg.UseGust && rec.WindGust != nil && float64(*rec.WindGust) > speed {
		speed = float64(*rec.WindGust)
		speedSource = "gust"
	}

	dir := dirTrue
	var variation *float64
	if v.cfg.MagneticEnabled {
		variation = v.cfg.Variation
		if variation == nil {
			variation = wind.StationVariation(rec.Station)
		}
		dir = wind.TrueToMagnetic(dirTrue, variation)
	}

	comps := wind.Resolve(speed, dir, *runwayHdg)
	truth := comps.CrosswindKt
	discrepancy := truth - *claim
	if discrepancy < 0 {
		discrepancy = -discrepancy
	}

	res := &Result{
		AgentClaim:  claim,
		Truth:       &truth,
		Discrepancy: &discrepancy,
		WindData: map[string]any{
			"raw":                rec.WindString(),
			"direction_true":     dirTrue,
			"direction_magnetic": dir,
			"speed_used":         speed,
			"speed_source":       speedSource,
		},
		Calculation: map[string]any{
			"runway_heading": *runwayHdg,
			"angle_deg":      comps.AngleDeg,
			"formula":        fmt.Sprintf("%g × sin(%.1f°)", speed, comps.AngleDeg),
			"crosswind_kt":   truth,
			"headwind_kt":    comps.HeadwindKt,
		},
	}

	if discrepancy <= v.cfg.ThresholdKt {
		res.Status = StatusPassed
		res.Reason = fmt.Sprintf("claim %.2f kt within %.1f kt of computed %.2f kt", *claim, v.cfg.ThresholdKt, truth)
		return res
	}

	res.Status = StatusFailed
	res.Reason = fmt.Sprintf("claim %.2f kt differs from computed %.2f kt by %.2f kt (threshold %.1f kt)",
		*claim, truth, discrepancy, v.cfg.ThresholdKt)
	res.ReflectionPrompt = fmt.Sprintf(
		"The previous answer claimed a crosswind of %.2f kt, but the tracked METAR wind %s against runway heading %.0f° "+
			"gives an angle of %.1f° and a crosswind of %g × sin(%.1f°) = %.2f kt. "+
			"Rewrite the answer using the verified crosswind of %.2f kt.",
		*claim, rec.WindString(), *runwayHdg, comps.AngleDeg, speed, comps.AngleDeg, truth, truth)
	return res
}

// SafeFailText renders the conservative fallback answer: it names the
// airport and wind, states the verified value, and tells the user to check
// for themselves. It always returns a usable string.
func SafeFailText(station, windStr string, truth *float64, traceID string) string {
	if station == "" {
		station = "the requested airport"
	}
	msg := fmt.Sprintf("I could not verify the crosswind figure for %s.", station)
	if windStr != "" {
		msg += fmt.Sprintf(" Reported wind is %s.", windStr)
	}
	if truth != nil {
		msg += fmt.Sprintf(" The mathematically verified crosswind is %.2f kt.", *truth)
	}
	msg += " Please verify independently with current METAR data before making any operational decision."
	if traceID != "" {
		msg += fmt.Sprintf(" Audit trace: %s.", traceID)
	}
	return msg
}
