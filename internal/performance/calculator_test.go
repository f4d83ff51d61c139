package performance

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avholt/wxstation/internal/metar"
	"github.com/avholt/wxstation/pkg/logger"
)

func TestPressureAltitude(t *testing.T) {
	// Standard pressure leaves the field at its elevation.
	assert.InDelta(t, 1500.0, PressureAltitude(1500, 1013.25), 0.01)

	// 30 hPa below standard adds roughly 830 ft.
	assert.InDelta(t, 829.0, PressureAltitude(0, 983.25), 5)

	// High pressure pushes the pressure altitude below the field.
	assert.Less(t, PressureAltitude(0, 1030), 0.0)
}

func TestDensityAltitude(t *testing.T) {
	// ISA temperature at sea level: DA equals PA.
	assert.InDelta(t, 0.0, DensityAltitude(0, 15), 0.01)

	// 10 degrees above ISA adds 1200 ft.
	assert.InDelta(t, 1200.0, DensityAltitude(0, 25), 0.01)

	// Cold air lowers it.
	assert.Less(t, DensityAltitude(0, -10), 0.0)
}

func TestWindComponents(t *testing.T) {
	tests := []struct {
		name      string
		speed     float64
		trueDir   float64
		runwayMag float64
		decl      float64
		wantHead  float64
		wantCross float64
		wantFrom  string
	}{
		{"straight down the runway", 10, 360, 360, 0, 10, 0, "right"},
		{"direct crosswind from the right", 10, 90, 360, 0, 0, 10, "right"},
		{"direct crosswind from the left", 10, 270, 360, 0, 0, 10, "left"},
		{"direct tailwind", 10, 180, 360, 0, -10, 0, "right"},
		{"30 degrees off", 10, 30, 360, 0, 8.66, 5, "right"},
		{"easterly declination aligns the wind", 10, 10, 360, 10, 10, 0, "right"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			head, cross, from := components(tc.speed, tc.trueDir, tc.runwayMag, tc.decl)
			assert.InDelta(t, tc.wantHead, head, 0.01)
			assert.InDelta(t, tc.wantCross, cross, 0.01)
			if tc.wantCross > 0.01 {
				assert.Equal(t, tc.wantFrom, from)
			}
		})
	}
}

func TestWorstCaseComponents(t *testing.T) {
	// 350V030 at 10 kt on runway 36: the worst crosswind sits at the 030
	// edge of the arc, the worst headwind at the same edge.
	head, cross, from := worstCaseComponents(10, 350, 30, 360, 0)
	assert.InDelta(t, 8.66, head, 0.01)
	assert.InDelta(t, 5.0, cross, 0.01)
	assert.Equal(t, "right", from)

	// An arc spanning a direct tailwind must surface the negative headwind.
	head, _, _ = worstCaseComponents(10, 150, 210, 360, 0)
	assert.InDelta(t, -10.0, head, 0.01)
}

func TestMagneticVariation(t *testing.T) {
	// Boston area, well inside the model's validity period.
	d := MagneticVariation(42.36, -71.01, 20, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, math.IsNaN(d))
	assert.Greater(t, d, -90.0)
	assert.Less(t, d, 90.0)
}

func newTestCalculator() *Calculator {
	station := Station{
		Latitude:    37.62,
		Longitude:   -122.37,
		ElevationFt: 13,
		Runways: []Runway{
			{Ident: "28L", MagneticHdgDeg: 284},
			{Ident: "01R", MagneticHdgDeg: 14},
		},
	}
	return NewCalculator(station, logger.NewNop())
}

func TestAssessFullReport(t *testing.T) {
	calc := newTestCalculator()

	dir := 280
	gust := 25
	report := &metar.ParsedReport{
		Kind:      metar.KindRoutine,
		StationID: "KSFO",
		Wind:      &metar.WindField{DirectionDeg: &dir, SpeedKt: 16, GustKt: &gust},
		TempDew:   &metar.TemperatureDewpoint{TemperatureC: 18, DewpointC: 12},
		Pressure:  &metar.PressureField{QNHhPa: 1013.25},
	}
	issued := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	out := calc.Assess(metar.ToSnapshot(report, issued, "test"))

	assert.Equal(t, "KSFO", out.Station)
	assert.Equal(t, issued, out.IssuedAt)

	require.NotNil(t, out.PressureAltFt)
	assert.InDelta(t, 13.0, *out.PressureAltFt, 0.1)
	require.NotNil(t, out.DensityAltFt)
	assert.Greater(t, *out.DensityAltFt, *out.PressureAltFt)

	require.Len(t, out.RunwayWinds, 2)
	for _, rw := range out.RunwayWinds {
		assert.False(t, rw.Variable)
		require.NotNil(t, rw.GustHeadwindKt)
		require.NotNil(t, rw.GustCrosswindKt)
	}
	// Wind near the 28L heading favours it over the crossing runway.
	assert.Greater(t, out.RunwayWinds[0].HeadwindKt, out.RunwayWinds[1].HeadwindKt)
}

func TestAssessVariableWind(t *testing.T) {
	calc := newTestCalculator()

	report := &metar.ParsedReport{
		Kind:      metar.KindRoutine,
		StationID: "KSFO",
		Wind:      &metar.WindField{SpeedKt: 5, Variable: true},
	}
	out := calc.Assess(metar.ToSnapshot(report, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), "test"))

	require.Len(t, out.RunwayWinds, 2)
	for _, rw := range out.RunwayWinds {
		assert.True(t, rw.Variable)
		assert.Equal(t, 0.0, rw.HeadwindKt)
		assert.Equal(t, 5.0, rw.CrosswindKt)
		assert.Equal(t, "either", rw.CrosswindFrom)
	}
}

func TestAssessMissingGroups(t *testing.T) {
	calc := newTestCalculator()

	report := &metar.ParsedReport{Kind: metar.KindRoutine, StationID: "KSFO"}
	out := calc.Assess(metar.ToSnapshot(report, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), "test"))

	assert.Nil(t, out.PressureAltFt)
	assert.Nil(t, out.DensityAltFt)
	assert.Empty(t, out.RunwayWinds)
}
