package metar

import (
	"regexp"
	"strconv"
	"strings"
)

// Token patterns for the fixed-format groups. Each decoder recognizes its
// grammar at the cursor position and advances only on success, so a mismatch
// is "group not present", never an error.
var (
	reStation      = regexp.MustCompile(`^[A-Za-z]{4}$`)
	reIssuanceTime = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})Z$`)
	reWind         = regexp.MustCompile(`^(\d{3}|VRB)(\d{2,3})(?:G(\d{2,3}))?KT$`)
	reWindVariable = regexp.MustCompile(`^(\d{3})V(\d{3})$`)
	reVisMeters    = regexp.MustCompile(`^\d{1,5}$`)
	reRVR          = regexp.MustCompile(`^R(\d{2}[LRC]?)/(\d{4})(?:V(\d{4}))?FT$`)
	reVertVis      = regexp.MustCompile(`^VV(\d{3})$`)
	reCloudLayer   = regexp.MustCompile(`^(FEW|SCT|BKN|OVC)(\d{3})(CB|TCU)?$`)
	reTempDew      = regexp.MustCompile(`^(M?\d{2})/(M?\d{2})$`)
	rePressure     = regexp.MustCompile(`^([AQ])(\d{4})$`)
)

// Code tables for the present-weather grammar. Decoding is a table lookup per
// candidate two-letter code so new codes are a data change.
var (
	descriptorCodes = map[string]Descriptor{
		"MI": DescriptorShallow,
		"BC": DescriptorPatches,
		"PR": DescriptorPartial,
		"DR": DescriptorDrifting,
		"BL": DescriptorBlowing,
		"SH": DescriptorShowers,
		"TS": DescriptorThunderstorm,
		"FZ": DescriptorFreezing,
	}

	precipitationCodes = map[string]bool{
		"DZ": true, "RA": true, "SN": true, "SG": true,
		"IC": true, "PL": true, "GR": true, "GS": true, "UP": true,
	}

	obscurationCodes = map[string]bool{
		"BR": true, "FG": true, "FU": true, "VA": true,
		"DU": true, "SA": true, "HZ": true, "PY": true,
	}

	otherCodes = map[string]bool{
		"PO": true, "SQ": true, "FC": true, "SS": true, "DS": true,
	}
)

// decodeHeader recognizes the mandatory report-type token.
func decodeHeader(c *cursor) (ReportKind, bool) {
	tok, ok := c.current()
	if !ok {
		return "", false
	}
	switch tok {
	case string(KindRoutine):
		c.advance(1)
		return KindRoutine, true
	case string(KindSpecial):
		c.advance(1)
		return KindSpecial, true
	}
	return "", false
}

// decodeStation recognizes the mandatory 4-letter station identifier,
// case-normalized to uppercase.
func decodeStation(c *cursor) (string, bool) {
	tok, ok := c.current()
	if !ok || !reStation.MatchString(tok) {
		return "", false
	}
	c.advance(1)
	return strings.ToUpper(tok), true
}

// decodeIssuanceTime recognizes the DDHHMMZ group. The digit groups map
// positionally; calendar validation is deliberately a caller concern.
func decodeIssuanceTime(c *cursor) (*IssuanceTime, bool) {
	tok, ok := c.current()
	if !ok {
		return nil, false
	}
	m := reIssuanceTime.FindStringSubmatch(tok)
	if m == nil {
		return nil, false
	}
	day, _ := strconv.Atoi(m[1])
	hour, _ := strconv.Atoi(m[2])
	minute, _ := strconv.Atoi(m[3])
	c.advance(1)
	return &IssuanceTime{Day: day, Hour: hour, Minute: minute}, true
}

// decodeWind recognizes dddffKT / dddffGffKT / VRBffKT. When the primary
// token matched, it additionally peeks the next token for a DDDVDDD
// variable-direction range and consumes that too if present. This is the one
// decoder that may consume two tokens.
func decodeWind(c *cursor) (*WindField, bool) {
	tok, ok := c.current()
	if !ok {
		return nil, false
	}
	m := reWind.FindStringSubmatch(tok)
	if m == nil {
		return nil, false
	}

	wind := &WindField{}
	if m[1] == "VRB" {
		wind.Variable = true
	} else {
		dir, _ := strconv.Atoi(m[1])
		if dir > 360 {
			return nil, false
		}
		wind.DirectionDeg = &dir
	}
	wind.SpeedKt, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		gust, _ := strconv.Atoi(m[3])
		wind.GustKt = &gust
	}

	consumed := 1
	if next, ok := c.peek(1); ok {
		if vm := reWindVariable.FindStringSubmatch(next); vm != nil {
			from, _ := strconv.Atoi(vm[1])
			to, _ := strconv.Atoi(vm[2])
			wind.VariableFromDeg = &from
			wind.VariableToDeg = &to
			consumed = 2
		}
	}

	c.advance(consumed)
	return wind, true
}

// decodeVisibility recognizes one of three mutually exclusive encodings,
// tried in order: M-prefixed fractional statute miles (scaled by the legacy
// 0.9 "just under" factor), exact statute miles (integer or fraction), or a
// bare integer interpreted as meters with the >=9999 unlimited sentinel.
func decodeVisibility(c *cursor) (*VisibilityField, bool) {
	tok, ok := c.current()
	if !ok {
		return nil, false
	}

	if strings.HasSuffix(tok, "SM") {
		body := strings.TrimSuffix(tok, "SM")
		lessThan := strings.HasPrefix(body, "M")
		if lessThan {
			body = body[1:]
		}
		miles, ok := parseStatuteMiles(body)
		if !ok {
			return nil, false
		}
		if lessThan {
			miles *= lessThanVisibilityFactor
		}
		c.advance(1)
		return &VisibilityField{DistanceM: miles * MetersPerStatuteMile}, true
	}

	if reVisMeters.MatchString(tok) {
		meters, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, false
		}
		if meters >= 9999 {
			meters = UnlimitedVisibilityM
		}
		c.advance(1)
		return &VisibilityField{DistanceM: meters}, true
	}

	return nil, false
}

// parseStatuteMiles parses a statute-mile magnitude, either a plain integer
// ("10") or a fraction ("1/2").
func parseStatuteMiles(s string) (float64, bool) {
	if num, den, found := strings.Cut(s, "/"); found {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// decodeRunwayVisualRanges consumes consecutive R<rwy>/<vis>[V<vis>]FT groups.
func decodeRunwayVisualRanges(c *cursor) ([]RunwayVisualRange, bool) {
	var ranges []RunwayVisualRange
	for {
		tok, ok := c.current()
		if !ok {
			break
		}
		m := reRVR.FindStringSubmatch(tok)
		if m == nil {
			break
		}
		rvr := RunwayVisualRange{Runway: m[1]}
		rvr.VisibilityFt, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			max, _ := strconv.Atoi(m[3])
			rvr.VariableToFt = &max
		}
		ranges = append(ranges, rvr)
		c.advance(1)
	}
	return ranges, len(ranges) > 0
}

// decodePhenomena consumes consecutive present-weather groups. Inside one
// token the order is: intensity marker, optional descriptor, then repeated
// two-letter codes until the token is exhausted. A token with an unmatched
// remainder, or with no precipitation/obscuration/other code at all, is left
// unconsumed and ends the list.
func decodePhenomena(c *cursor) ([]WeatherPhenomenon, bool) {
	var phenomena []WeatherPhenomenon
	for {
		tok, ok := c.current()
		if !ok {
			break
		}
		p, ok := decodeOnePhenomenon(tok)
		if !ok {
			break
		}
		phenomena = append(phenomena, *p)
		c.advance(1)
	}
	return phenomena, len(phenomena) > 0
}

func decodeOnePhenomenon(tok string) (*WeatherPhenomenon, bool) {
	p := &WeatherPhenomenon{Intensity: IntensityModerate}

	rest := tok
	switch {
	case strings.HasPrefix(rest, "-"):
		p.Intensity = IntensityLight
		rest = rest[1:]
	case strings.HasPrefix(rest, "+"):
		p.Intensity = IntensityHeavy
		rest = rest[1:]
	case strings.HasPrefix(rest, "VC"):
		p.Intensity = IntensityInVicinity
		rest = rest[2:]
	}

	if len(rest) >= 2 {
		if d, ok := descriptorCodes[rest[:2]]; ok {
			p.Descriptor = d
			rest = rest[2:]
		}
	}

	for len(rest) >= 2 {
		code := rest[:2]
		switch {
		case precipitationCodes[code]:
			p.Precipitation = append(p.Precipitation, code)
		case obscurationCodes[code]:
			p.Obscuration = append(p.Obscuration, code)
		case otherCodes[code]:
			p.Other = append(p.Other, code)
		default:
			// Unmatched remainder voids the whole token.
			return nil, false
		}
		rest = rest[2:]
	}
	if rest != "" {
		return nil, false
	}

	if len(p.Precipitation)+len(p.Obscuration)+len(p.Other) == 0 {
		// A bare intensity/descriptor is not a phenomenon.
		return nil, false
	}
	return p, true
}

// decodeCloudLayers consumes consecutive sky-condition groups, matching in
// priority order: clear-sky sentinels, vertical visibility, general coverage.
func decodeCloudLayers(c *cursor) ([]CloudLayer, bool) {
	var layers []CloudLayer
	for {
		tok, ok := c.current()
		if !ok {
			break
		}
		layer, ok := decodeOneCloudLayer(tok)
		if !ok {
			break
		}
		layers = append(layers, *layer)
		c.advance(1)
	}
	return layers, len(layers) > 0
}

func decodeOneCloudLayer(tok string) (*CloudLayer, bool) {
	switch tok {
	case "SKC":
		return &CloudLayer{Coverage: CoverageClear}, true
	case "CLR", "NSC":
		return &CloudLayer{Coverage: CoverageNoSignificantCloud}, true
	}

	if m := reVertVis.FindStringSubmatch(tok); m != nil {
		hundreds, _ := strconv.Atoi(m[1])
		alt := hundreds * 100
		return &CloudLayer{Coverage: CoverageVerticalVisibility, BaseAltitudeFt: &alt}, true
	}

	if m := reCloudLayer.FindStringSubmatch(tok); m != nil {
		layer := &CloudLayer{}
		switch m[1] {
		case "FEW":
			layer.Coverage = CoverageFew
		case "SCT":
			layer.Coverage = CoverageScattered
		case "BKN":
			layer.Coverage = CoverageBroken
		case "OVC":
			layer.Coverage = CoverageOvercast
		}
		hundreds, _ := strconv.Atoi(m[2])
		alt := hundreds * 100
		layer.BaseAltitudeFt = &alt
		if m[3] != "" {
			conv := ConvectiveType(m[3])
			layer.Convective = &conv
		}
		return layer, true
	}

	return nil, false
}

// decodeTempDew recognizes the (M?dd)/(M?dd) group; the M marker negates the
// following magnitude for each side independently.
func decodeTempDew(c *cursor) (*TemperatureDewpoint, bool) {
	tok, ok := c.current()
	if !ok {
		return nil, false
	}
	m := reTempDew.FindStringSubmatch(tok)
	if m == nil {
		return nil, false
	}
	c.advance(1)
	return &TemperatureDewpoint{
		TemperatureC: parseSignedMagnitude(m[1]),
		DewpointC:    parseSignedMagnitude(m[2]),
	}, true
}

func parseSignedMagnitude(s string) int {
	negative := strings.HasPrefix(s, "M")
	if negative {
		s = s[1:]
	}
	v, _ := strconv.Atoi(s)
	if negative {
		v = -v
	}
	return v
}

// decodePressure recognizes the altimeter group. A-prefixed values are
// inches of mercury x100 and normalize to hPa; Q-prefixed values are hPa.
func decodePressure(c *cursor) (*PressureField, bool) {
	tok, ok := c.current()
	if !ok {
		return nil, false
	}
	m := rePressure.FindStringSubmatch(tok)
	if m == nil {
		return nil, false
	}
	raw, _ := strconv.ParseFloat(m[2], 64)

	var qnh float64
	switch m[1] {
	case "A":
		qnh = (raw / 100.0) / inHgToHPa
	case "Q":
		qnh = raw
	}
	c.advance(1)
	return &PressureField{QNHhPa: qnh}, true
}

// decodeRemarks scans forward for the RMK sentinel. When found, every token
// after it is joined into one free-text string and the cursor moves to the
// end of the sequence; otherwise the cursor is left untouched.
func decodeRemarks(c *cursor) (string, bool) {
	rest := c.rest()
	for i, tok := range rest {
		if tok == "RMK" {
			remarks := strings.Join(rest[i+1:], " ")
			c.advance(len(rest))
			return remarks, true
		}
	}
	return "", false
}
