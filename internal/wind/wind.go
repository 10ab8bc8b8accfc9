// Package wind provides pure wind geometry math: parsing wind strings,
// crosswind/headwind decomposition against a runway heading, and
// true/magnetic heading conversion. No I/O happens here.
package wind

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a wind string has the right shape but
// unparseable numerics.
var ErrMalformed = errors.New("malformed wind string")

// Components is the decomposition of a wind vector against a runway.
// HeadwindKt is signed: negative means tailwind.
type Components struct {
	AngleDeg    float64 `json:"angle_deg"`
	CrosswindKt float64 `json:"crosswind_kt"`
	HeadwindKt  float64 `json:"headwind_kt"`
}

// Parse parses a wind string in the forms "DDD @ SS", "DDD @ SS G GG",
// "VRB @ SS", or "". Variable direction yields a nil direction. An empty
// string yields all nils with no error.
func Parse(s string) (dir, speed, gust *float64, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, nil, nil
	}

	parts := strings.Split(s, " @ ")
	if len(parts) != 2 {
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	dirStr := strings.TrimSpace(parts[0])
	if !strings.EqualFold(dirStr, "VRB") {
		d, perr := strconv.ParseFloat(dirStr, 64)
		if perr != nil {
			return nil, nil, nil, fmt.Errorf("%w: direction %q", ErrMalformed, dirStr)
		}
		dir = &d
	}

	speedStr := strings.TrimSpace(parts[1])
	if i := strings.Index(strings.ToUpper(speedStr), " G "); i >= 0 {
		gustStr := strings.TrimSpace(speedStr[i+3:])
		g, perr := strconv.ParseFloat(gustStr, 64)
		if perr != nil {
			return nil, nil, nil, fmt.Errorf("%w: gust %q", ErrMalformed, gustStr)
		}
		gust = &g
		speedStr = strings.TrimSpace(speedStr[:i])
	}

	v, perr := strconv.ParseFloat(speedStr, 64)
	if perr != nil {
		return nil, nil, nil, fmt.Errorf("%w: speed %q", ErrMalformed, speedStr)
	}
	speed = &v

	return dir, speed, gust, nil
}

// Format renders wind in the canonical form Parse accepts.
// A nil direction renders as VRB; all-nil input renders as "".
func Format(dir, speed, gust *float64) string {
	if speed == nil {
		return ""
	}

	var b strings.Builder
	if dir == nil {
		b.WriteString("VRB")
	} else {
		fmt.Fprintf(&b, "%03.0f", math.Mod(math.Mod(*dir, 360)+360, 360))
	}
	fmt.Fprintf(&b, " @ %.0f", *speed)
	if gust != nil {
		fmt.Fprintf(&b, " G %.0f", *gust)
	}
	return b.String()
}

// AngleBetween returns the minimal angular difference between a wind
// direction and a runway heading, in [0, 180].
func AngleBetween(windDir, runwayHdg float64) float64 {
	d := math.Mod(windDir-runwayHdg, 360)
	if d < 0 {
		d += 360
	}
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Crosswind returns the unsigned crosswind component for wind speed v at
// angle angleDeg off the runway heading.
func Crosswind(v, angleDeg float64) float64 {
	return math.Abs(v * math.Sin(angleDeg*math.Pi/180))
}

// Headwind returns the signed headwind component. Negative means tailwind.
func Headwind(v, angleDeg float64) float64 {
	return v * math.Cos(angleDeg*math.Pi/180)
}

// Resolve computes the full decomposition of wind (windDir degrees, v knots)
// against runwayHdg.
func Resolve(v, windDir, runwayHdg float64) Components {
	angle := AngleBetween(windDir, runwayHdg)
	return Components{
		AngleDeg:    angle,
		CrosswindKt: Crosswind(v, angle),
		HeadwindKt:  Headwind(v, angle),
	}
}

// TrueToMagnetic converts a true heading to magnetic using the local
// variation (declination, east positive). A nil variation is the identity.
func TrueToMagnetic(trueHdg float64, variation *float64) float64 {
	if variation == nil {
		return normalizeHeading(trueHdg)
	}
	return normalizeHeading(trueHdg - *variation)
}

// MagneticToTrue converts a magnetic heading back to true.
func MagneticToTrue(magHdg float64, variation *float64) float64 {
	if variation == nil {
		return normalizeHeading(magHdg)
	}
	return normalizeHeading(magHdg + *variation)
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}
