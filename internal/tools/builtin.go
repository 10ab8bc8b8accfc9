package tools

import (
	"context"
	"fmt"
	"math"
	"time"

	"flight_assistant/internal/atc"
	"flight_assistant/internal/flightlog"
	"flight_assistant/internal/metar"
	"flight_assistant/internal/runway"
	"flight_assistant/internal/specs"
	"flight_assistant/internal/wind"
)

// Policy carries the wind-handling flags tools share with the verifier.
type Policy struct {
	UseGust         bool
	MagneticEnabled bool
}

// Deps are the collaborators the built-in tools close over.
type Deps struct {
	Weather   *metar.Client
	Specs     *specs.Store
	FlightLog flightlog.Writer
	Policy    Policy
}

// FuelBurn is the calculate_fuel_burn result.
type FuelBurn struct {
	DistanceNM       float64 `json:"distance_nm"`
	FlightHours      float64 `json:"flight_hours"`
	BurnRateGPH      float64 `json:"burn_rate_gph"`
	TotalFuelGallons float64 `json:"total_fuel_gallons"`
}

// LogResult is the log_flight_event result.
type LogResult struct {
	Success   bool   `json:"success"`
	PilotID   string `json:"pilot_id"`
	EventType string `json:"event_type"`
	Message   string `json:"message"`
}

func zero() *float64 { z := 0.0; return &z }

// NewBuiltinRegistry registers the standard tool set over the given
// collaborators.
func NewBuiltinRegistry(deps Deps) *Registry {
	r := NewRegistry()

	r.Register(&Tool{
		Name:        "fetch_metar",
		Description: "Fetch current weather (METAR) for an airport. Returns wind, visibility, temperature, and flight category.",
		Params: []Param{
			{Name: "icao_code", Type: "string", Description: "Airport ICAO code (e.g., KDEN)", Required: true},
		},
		Invoke: func(ctx context.Context, args Args) (any, error) {
			return deps.Weather.Fetch(ctx, args.String("icao_code"))
		},
	})

	r.Register(&Tool{
		Name:        "select_best_runway",
		Description: "Select the runway with the lowest crosswind for the given wind, preferring a headwind.",
		Params: []Param{
			{Name: "icao_code", Type: "string", Description: "Airport ICAO code", Required: true},
			{Name: "wind", Type: "string", Description: `Wind as "DDD @ SS"`, Required: true},
			{Name: "wind_gust", Type: "number", Description: "Gust speed in knots", Min: zero()},
			{Name: "runways", Type: "array", Description: "Candidate runway designators; defaults to the airport catalog"},
			{Name: "max_crosswind_threshold", Type: "number", Description: "Advisory crosswind limit in knots", Min: zero()},
		},
		Invoke: func(ctx context.Context, args Args) (any, error) {
			dir, speed, gust, err := wind.Parse(args.String("wind"))
			if err != nil {
				return nil, err
			}
			if dir == nil || speed == nil {
				return nil, fmt.Errorf("wind direction and speed required for runway selection")
			}
			if g, ok := args.Number("wind_gust"); ok {
				gust = &g
			}
			maxCross, _ := args.Number("max_crosswind_threshold")
			return runway.Select(args.String("icao_code"), *dir, *speed, gust, runway.Options{
				Runways:         args.StringSlice("runways"),
				MaxCrosswindKt:  maxCross,
				UseGust:         deps.Policy.UseGust,
				MagneticEnabled: deps.Policy.MagneticEnabled,
			})
		},
	})

	r.Register(&Tool{
		Name:        "fetch_aircraft_specs",
		Description: "Get aircraft specifications by tail number.",
		Params: []Param{
			{Name: "aircraft_id", Type: "string", Description: "Aircraft tail number (e.g., N12345)", Required: true},
		},
		Invoke: func(ctx context.Context, args Args) (any, error) {
			return deps.Specs.Aircraft(args.String("aircraft_id"))
		},
	})

	r.Register(&Tool{
		Name:        "calculate_fuel_burn",
		Description: "Estimate fuel consumption for a flight given distance, aircraft type, and headwind.",
		Params: []Param{
			{Name: "distance_nm", Type: "number", Description: "Distance in nautical miles", Required: true, Min: zero()},
			{Name: "aircraft_type", Type: "string", Description: "Aircraft type (e.g., Cessna 172)", Required: true},
			{Name: "headwind_kt", Type: "number", Description: "Headwind in knots", Min: zero()},
		},
		Invoke: func(ctx context.Context, args Args) (any, error) {
			distance, _ := args.Number("distance_nm")
			headwind, _ := args.Number("headwind_kt")
			rate := deps.Specs.BurnRateForType(args.String("aircraft_type"))
			// 10% burn penalty per 10 kt of headwind, 100 kt planning speed.
			adjusted := rate * (1 + headwind/10*0.1)
			hours := distance / 100
			return &FuelBurn{
				DistanceNM:       distance,
				FlightHours:      round2(hours),
				BurnRateGPH:      round2(adjusted),
				TotalFuelGallons: round2(hours * adjusted),
			}, nil
		},
	})

	r.Register(&Tool{
		Name:        "query_manual",
		Description: "Look up a flight manual topic.",
		Params: []Param{
			{Name: "topic", Type: "string", Description: "Topic key (e.g., crosswind_limits)", Required: true},
		},
		Invoke: func(ctx context.Context, args Args) (any, error) {
			return deps.Specs.Manual(args.String("topic"))
		},
	})

	r.Register(&Tool{
		Name:        "log_flight_event",
		Description: "Record a flight event.",
		Params: []Param{
			{Name: "pilot_id", Type: "string", Description: "Pilot identifier", Required: true},
			{Name: "event_type", Type: "string", Description: "Event type (e.g., flight_completed)", Required: true},
			{Name: "data", Type: "object", Description: "Event payload", Required: true},
		},
		Invoke: func(ctx context.Context, args Args) (any, error) {
			ev := flightlog.Event{
				PilotID:   args.String("pilot_id"),
				EventType: args.String("event_type"),
				Data:      args.Object("data"),
				LoggedAt:  time.Now().UTC(),
			}
			if err := deps.FlightLog.Log(ctx, ev); err != nil {
				return nil, err
			}
			return &LogResult{
				Success:   true,
				PilotID:   ev.PilotID,
				EventType: ev.EventType,
				Message:   fmt.Sprintf("Flight event logged for pilot %s", ev.PilotID),
			}, nil
		},
	})

	r.Register(&Tool{
		Name:        "generate_atc_phrase",
		Description: "Generate standard ATC phraseology from wind and runway data.",
		Params: []Param{
			{Name: "station", Type: "string", Description: "Station ICAO code", Required: true},
			{Name: "wind", Type: "string", Description: `Wind as "DDD @ SS"`, Required: true},
			{Name: "wind_gust", Type: "number", Description: "Gust speed in knots", Min: zero()},
			{Name: "flight_category", Type: "string", Description: "VFR, MVFR, IFR, or LIFR"},
			{Name: "runway_designator", Type: "string", Description: `Runway like "26" or "17L"`, Required: true},
			{Name: "phrase_type", Type: "string", Description: "landing_clearance, approach, wind_advisory, or runway_advisory"},
			{Name: "station_callsign", Type: "string", Description: `Spoken callsign (e.g., "Denver Tower")`},
		},
		Invoke: func(ctx context.Context, args Args) (any, error) {
			dir, speed, gust, err := wind.Parse(args.String("wind"))
			if err != nil {
				return nil, err
			}
			if dir == nil || speed == nil {
				return nil, fmt.Errorf("wind direction and speed required for phrase generation")
			}
			rec := &metar.Record{
				Station:        args.String("station"),
				FlightCategory: args.String("flight_category"),
			}
			d, s := int(*dir), int(*speed)
			rec.WindDirection, rec.WindSpeed = &d, &s
			if g, ok := args.Number("wind_gust"); ok {
				gi := int(g)
				rec.WindGust = &gi
			} else if gust != nil {
				gi := int(*gust)
				rec.WindGust = &gi
			}
			return atc.Generate(rec, args.String("runway_designator"), args.String("phrase_type"), args.String("station_callsign"))
		},
	})

	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
