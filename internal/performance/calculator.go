package performance

import (
	"math"
	"time"

	"github.com/avholt/wxstation/internal/metar"
	"github.com/avholt/wxstation/pkg/logger"
)

// Runway describes a single landing surface at the station.
type Runway struct {
	Ident          string  `json:"ident"`
	MagneticHdgDeg float64 `json:"magnetic_hdg_deg"`
}

// Station holds the fixed site parameters the calculator needs.
type Station struct {
	Latitude    float64
	Longitude   float64
	ElevationFt float64
	Runways     []Runway
}

// RunwayWind is the wind resolved into components along one runway.
// Headwind is positive when the wind opposes the landing direction;
// a negative value is a tailwind. Crosswind is always a magnitude with
// CrosswindFrom naming the side it blows from.
type RunwayWind struct {
	Runway          string   `json:"runway"`
	HeadwindKt      float64  `json:"headwind_kt"`
	CrosswindKt     float64  `json:"crosswind_kt"`
	CrosswindFrom   string   `json:"crosswind_from"`
	GustHeadwindKt  *float64 `json:"gust_headwind_kt,omitempty"`
	GustCrosswindKt *float64 `json:"gust_crosswind_kt,omitempty"`
	Variable        bool     `json:"variable"`
}

// Assessment is the derived performance picture for one weather snapshot.
type Assessment struct {
	Station        string       `json:"station"`
	IssuedAt       time.Time    `json:"issued_at"`
	DeclinationDeg float64      `json:"declination_deg"`
	PressureAltFt  *float64     `json:"pressure_alt_ft,omitempty"`
	DensityAltFt   *float64     `json:"density_alt_ft,omitempty"`
	RunwayWinds    []RunwayWind `json:"runway_winds,omitempty"`
}

// Calculator derives runway wind components and altitude figures from
// decoded weather snapshots.
type Calculator struct {
	station Station
	logger  *logger.Logger
}

func NewCalculator(station Station, log *logger.Logger) *Calculator {
	return &Calculator{
		station: station,
		logger:  log.Named("performance"),
	}
}

// Assess computes everything derivable from the snapshot. Groups absent
// from the report simply leave the corresponding fields unset.
func (c *Calculator) Assess(snapshot metar.WeatherSnapshot) Assessment {
	report := snapshot.Report

	out := Assessment{
		Station:  report.StationID,
		IssuedAt: snapshot.IssuedAt,
	}
	out.DeclinationDeg = MagneticVariation(
		c.station.Latitude, c.station.Longitude, c.station.ElevationFt, snapshot.IssuedAt)

	if report.Pressure != nil {
		pa := PressureAltitude(c.station.ElevationFt, report.Pressure.QNHhPa)
		out.PressureAltFt = &pa
		if report.TempDew != nil {
			da := DensityAltitude(pa, float64(report.TempDew.TemperatureC))
			out.DensityAltFt = &da
		}
	}

	if report.Wind != nil {
		for _, rwy := range c.station.Runways {
			out.RunwayWinds = append(out.RunwayWinds, c.runwayWind(report.Wind, rwy, out.DeclinationDeg))
		}
	}

	return out
}

// runwayWind resolves a wind group against one runway heading. Reported
// directions are true; runway headings are magnetic, so the declination
// bridges the two. For variable winds the worst case over the reported
// arc is taken: minimum headwind and maximum crosswind, which need not
// occur at the same direction.
func (c *Calculator) runwayWind(wind *metar.WindField, rwy Runway, declinationDeg float64) RunwayWind {
	rw := RunwayWind{Runway: rwy.Ident, Variable: wind.Variable || wind.DirectionDeg == nil}

	speed := float64(wind.SpeedKt)

	if wind.DirectionDeg == nil && wind.VariableFromDeg == nil {
		// VRB with no range: direction is unknown, so the full wind
		// speed must be assumed as crosswind and no headwind credited.
		rw.HeadwindKt = 0
		rw.CrosswindKt = speed
		rw.CrosswindFrom = "either"
		if wind.GustKt != nil {
			gust := float64(*wind.GustKt)
			zero := 0.0
			rw.GustHeadwindKt = &zero
			rw.GustCrosswindKt = &gust
		}
		return rw
	}

	if wind.VariableFromDeg != nil && wind.VariableToDeg != nil {
		head, cross, from := worstCaseComponents(
			speed, float64(*wind.VariableFromDeg), float64(*wind.VariableToDeg),
			rwy.MagneticHdgDeg, declinationDeg)
		rw.HeadwindKt = head
		rw.CrosswindKt = cross
		rw.CrosswindFrom = from
		if wind.GustKt != nil {
			gh, gc, _ := worstCaseComponents(
				float64(*wind.GustKt), float64(*wind.VariableFromDeg), float64(*wind.VariableToDeg),
				rwy.MagneticHdgDeg, declinationDeg)
			rw.GustHeadwindKt = &gh
			rw.GustCrosswindKt = &gc
		}
		return rw
	}

	head, cross, from := components(speed, float64(*wind.DirectionDeg), rwy.MagneticHdgDeg, declinationDeg)
	rw.HeadwindKt = head
	rw.CrosswindKt = cross
	rw.CrosswindFrom = from
	if wind.GustKt != nil {
		gh, gc, _ := components(float64(*wind.GustKt), float64(*wind.DirectionDeg), rwy.MagneticHdgDeg, declinationDeg)
		rw.GustHeadwindKt = &gh
		rw.GustCrosswindKt = &gc
	}
	return rw
}

// components resolves a steady wind from a true direction into headwind
// and crosswind relative to a magnetic runway heading.
func components(speedKt, trueDirDeg, runwayMagDeg, declinationDeg float64) (head, cross float64, from string) {
	magDir := normalizeDeg(trueDirDeg - declinationDeg)
	delta := angleDiffDeg(magDir, runwayMagDeg)

	rad := delta * math.Pi / 180
	head = speedKt * math.Cos(rad)
	signed := speedKt * math.Sin(rad)

	cross = math.Abs(signed)
	from = "right"
	if signed < 0 {
		from = "left"
	}
	return head, cross, from
}

// worstCaseComponents sweeps the reported variable arc one degree at a
// time and keeps the least favourable headwind and crosswind. The arc
// runs clockwise from fromDeg to toDeg.
func worstCaseComponents(speedKt, fromDeg, toDeg, runwayMagDeg, declinationDeg float64) (head, cross float64, from string) {
	span := normalizeDeg(toDeg - fromDeg)
	if span == 0 {
		span = 360
	}

	head = math.Inf(1)
	cross = -1
	from = "right"
	for d := 0.0; d <= span; d++ {
		dir := normalizeDeg(fromDeg + d)
		h, x, side := components(speedKt, dir, runwayMagDeg, declinationDeg)
		if h < head {
			head = h
		}
		if x > cross {
			cross = x
			from = side
		}
	}
	return head, cross, from
}
