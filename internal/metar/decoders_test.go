package metar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tokens, ok := Tokenize("  METAR KSFO   010953Z ")
	require.True(t, ok)
	assert.Equal(t, []string{"METAR", "KSFO", "010953Z"}, tokens)

	_, ok = Tokenize("   ")
	assert.False(t, ok)

	_, ok = Tokenize("")
	assert.False(t, ok)
}

func TestDecodeWind(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		wantDir  int
		wantVar  bool
		wantSpd  int
		wantGust int
		consumed int
	}{
		{name: "simple", tokens: []string{"28010KT"}, wantDir: 280, wantSpd: 10, consumed: 1},
		{name: "gusting", tokens: []string{"27008G15KT"}, wantDir: 270, wantSpd: 8, wantGust: 15, consumed: 1},
		{name: "variable", tokens: []string{"VRB03KT"}, wantVar: true, wantSpd: 3, consumed: 1},
		{name: "three digit speed", tokens: []string{"240105KT"}, wantDir: 240, wantSpd: 105, consumed: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCursor(tt.tokens)
			wind, ok := decodeWind(c)
			require.True(t, ok)
			assert.Equal(t, tt.consumed, c.pos)
			assert.Equal(t, tt.wantSpd, wind.SpeedKt)
			assert.Equal(t, tt.wantVar, wind.Variable)
			if tt.wantVar {
				// Variable wind never carries a primary direction.
				assert.Nil(t, wind.DirectionDeg)
			} else {
				require.NotNil(t, wind.DirectionDeg)
				assert.Equal(t, tt.wantDir, *wind.DirectionDeg)
			}
			if tt.wantGust > 0 {
				require.NotNil(t, wind.GustKt)
				assert.Equal(t, tt.wantGust, *wind.GustKt)
			} else {
				assert.Nil(t, wind.GustKt)
			}
		})
	}
}

func TestDecodeWindVariableRange(t *testing.T) {
	c := newCursor([]string{"28012G20KT", "250V310", "10SM"})
	wind, ok := decodeWind(c)
	require.True(t, ok)
	assert.Equal(t, 2, c.pos, "wind decoder consumes the DDDVDDD continuation")
	require.NotNil(t, wind.VariableFromDeg)
	require.NotNil(t, wind.VariableToDeg)
	assert.Equal(t, 250, *wind.VariableFromDeg)
	assert.Equal(t, 310, *wind.VariableToDeg)
}

func TestDecodeWindDeclines(t *testing.T) {
	for _, tok := range []string{"28010", "2801KT", "ABCKT", "10SM", "37510KT"} {
		c := newCursor([]string{tok})
		_, ok := decodeWind(c)
		assert.False(t, ok, "token %q should not decode as wind", tok)
		assert.Equal(t, 0, c.pos, "declined decoder must not move the cursor")
	}
}

func TestDecodeVisibilityMeters(t *testing.T) {
	tests := []struct {
		token string
		want  float64
	}{
		{"4000", 4000},
		{"0350", 350},
		{"9998", 9998},
		{"9999", UnlimitedVisibilityM},
		{"12000", UnlimitedVisibilityM},
	}
	for _, tt := range tests {
		c := newCursor([]string{tt.token})
		vis, ok := decodeVisibility(c)
		require.True(t, ok, "token %q", tt.token)
		assert.Equal(t, tt.want, vis.DistanceM, "token %q", tt.token)
	}
}

func TestDecodeVisibilityStatuteMiles(t *testing.T) {
	tests := []struct {
		token string
		want  float64
	}{
		{"10SM", 10 * MetersPerStatuteMile},
		{"3SM", 3 * MetersPerStatuteMile},
		{"1/2SM", 0.5 * MetersPerStatuteMile},
		{"3/4SM", 0.75 * MetersPerStatuteMile},
		// The 0.9 factor on M-prefixed groups approximates "just under" the
		// stated fraction; it is a preserved legacy constant, not an ICAO rule.
		{"M1/4SM", 0.9 * 0.25 * MetersPerStatuteMile},
	}
	for _, tt := range tests {
		c := newCursor([]string{tt.token})
		vis, ok := decodeVisibility(c)
		require.True(t, ok, "token %q", tt.token)
		assert.InDelta(t, tt.want, vis.DistanceM, 1e-6, "token %q", tt.token)
	}
}

func TestDecodeVisibilityDeclines(t *testing.T) {
	for _, tok := range []string{"SM", "M/4SM", "FEW020", "R24L/1200FT"} {
		c := newCursor([]string{tok})
		_, ok := decodeVisibility(c)
		assert.False(t, ok, "token %q", tok)
		assert.Equal(t, 0, c.pos)
	}
}

func TestDecodeRunwayVisualRanges(t *testing.T) {
	c := newCursor([]string{"R06L/2000FT", "R24R/1000V4000FT", "-RA"})
	ranges, ok := decodeRunwayVisualRanges(c)
	require.True(t, ok)
	assert.Equal(t, 2, c.pos)
	require.Len(t, ranges, 2)

	assert.Equal(t, "06L", ranges[0].Runway)
	assert.Equal(t, 2000, ranges[0].VisibilityFt)
	assert.Nil(t, ranges[0].VariableToFt)

	assert.Equal(t, "24R", ranges[1].Runway)
	assert.Equal(t, 1000, ranges[1].VisibilityFt)
	require.NotNil(t, ranges[1].VariableToFt)
	assert.Equal(t, 4000, *ranges[1].VariableToFt)
}

func TestDecodePhenomena(t *testing.T) {
	c := newCursor([]string{"-SHRA", "VCFG", "+TSRAGR", "BR", "FEW020"})
	phenomena, ok := decodePhenomena(c)
	require.True(t, ok)
	assert.Equal(t, 4, c.pos)
	require.Len(t, phenomena, 4)

	assert.Equal(t, IntensityLight, phenomena[0].Intensity)
	assert.Equal(t, DescriptorShowers, phenomena[0].Descriptor)
	assert.Equal(t, []string{"RA"}, phenomena[0].Precipitation)

	assert.Equal(t, IntensityInVicinity, phenomena[1].Intensity)
	assert.Equal(t, []string{"FG"}, phenomena[1].Obscuration)

	assert.Equal(t, IntensityHeavy, phenomena[2].Intensity)
	assert.Equal(t, DescriptorThunderstorm, phenomena[2].Descriptor)
	assert.Equal(t, []string{"RA", "GR"}, phenomena[2].Precipitation)

	assert.Equal(t, IntensityModerate, phenomena[3].Intensity)
	assert.Equal(t, []string{"BR"}, phenomena[3].Obscuration)
}

func TestDecodePhenomenaRejectsBareDescriptor(t *testing.T) {
	// Intensity/descriptor stripping succeeds but no code follows: the token
	// yields no phenomenon and is not consumed.
	c := newCursor([]string{"VCSH"})
	_, ok := decodePhenomena(c)
	assert.False(t, ok)
	assert.Equal(t, 0, c.pos)
}

func TestDecodePhenomenaRejectsUnmatchedRemainder(t *testing.T) {
	c := newCursor([]string{"-RA", "+SNXX", "BR"})
	phenomena, ok := decodePhenomena(c)
	require.True(t, ok)
	// The malformed token ends the list; nothing after it is consumed.
	require.Len(t, phenomena, 1)
	assert.Equal(t, 1, c.pos)
}

func TestDecodeCloudLayers(t *testing.T) {
	c := newCursor([]string{"FEW020", "SCT045", "BKN100CB", "OVC200TCU", "18/12"})
	layers, ok := decodeCloudLayers(c)
	require.True(t, ok)
	assert.Equal(t, 4, c.pos)
	require.Len(t, layers, 4)

	assert.Equal(t, CoverageFew, layers[0].Coverage)
	require.NotNil(t, layers[0].BaseAltitudeFt)
	assert.Equal(t, 2000, *layers[0].BaseAltitudeFt)
	assert.Nil(t, layers[0].Convective)

	assert.Equal(t, CoverageScattered, layers[1].Coverage)
	assert.Equal(t, 4500, *layers[1].BaseAltitudeFt)

	assert.Equal(t, CoverageBroken, layers[2].Coverage)
	require.NotNil(t, layers[2].Convective)
	assert.Equal(t, ConvectiveCumulonimbus, *layers[2].Convective)

	assert.Equal(t, CoverageOvercast, layers[3].Coverage)
	assert.Equal(t, ConvectiveToweringCumulus, *layers[3].Convective)
}

func TestDecodeCloudSentinels(t *testing.T) {
	c := newCursor([]string{"SKC"})
	layers, ok := decodeCloudLayers(c)
	require.True(t, ok)
	require.Len(t, layers, 1)
	assert.Equal(t, CoverageClear, layers[0].Coverage)
	assert.Nil(t, layers[0].BaseAltitudeFt, "clear sky never carries an altitude")

	c = newCursor([]string{"NSC"})
	layers, ok = decodeCloudLayers(c)
	require.True(t, ok)
	assert.Equal(t, CoverageNoSignificantCloud, layers[0].Coverage)
	assert.Nil(t, layers[0].BaseAltitudeFt)
}

func TestDecodeVerticalVisibility(t *testing.T) {
	c := newCursor([]string{"VV004"})
	layers, ok := decodeCloudLayers(c)
	require.True(t, ok)
	require.Len(t, layers, 1)
	assert.Equal(t, CoverageVerticalVisibility, layers[0].Coverage)
	require.NotNil(t, layers[0].BaseAltitudeFt)
	assert.Equal(t, 400, *layers[0].BaseAltitudeFt)
}

func TestDecodeTempDew(t *testing.T) {
	tests := []struct {
		token    string
		wantTemp int
		wantDew  int
	}{
		{"18/12", 18, 12},
		{"M02/M10", -2, -10},
		{"00/M01", 0, -1},
		{"22/M05", 22, -5},
	}
	for _, tt := range tests {
		c := newCursor([]string{tt.token})
		td, ok := decodeTempDew(c)
		require.True(t, ok, "token %q", tt.token)
		assert.Equal(t, tt.wantTemp, td.TemperatureC, "token %q", tt.token)
		assert.Equal(t, tt.wantDew, td.DewpointC, "token %q", tt.token)
	}
}

func TestDecodePressure(t *testing.T) {
	c := newCursor([]string{"A3012"})
	p, ok := decodePressure(c)
	require.True(t, ok)
	// A3012 -> 30.12 inHg -> /0.02953 -> hPa
	assert.InDelta(t, 30.12/0.02953, p.QNHhPa, 1e-9)

	c = newCursor([]string{"Q1013"})
	p, ok = decodePressure(c)
	require.True(t, ok)
	assert.Equal(t, 1013.0, p.QNHhPa)
}

func TestDecodeRemarks(t *testing.T) {
	c := newCursor([]string{"RMK", "AO2", "SLP201"})
	remarks, ok := decodeRemarks(c)
	require.True(t, ok)
	assert.Equal(t, "AO2 SLP201", remarks)
	assert.True(t, c.done())

	c = newCursor([]string{"AO2", "SLP201"})
	_, ok = decodeRemarks(c)
	assert.False(t, ok)
	assert.Equal(t, 0, c.pos)
}
