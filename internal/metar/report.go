// Package metar decodes raw aviation surface-weather reports (METAR/SPECI)
// into a normalized, strongly-typed snapshot.
//
// The decoder is a single-pass, no-backtracking grammar over whitespace
// tokens: every group past the report-type header and station identifier is
// optional, and an unrecognized token simply means "group not present". Only
// a missing or malformed header or station identifier voids the parse.
// Parsing is pure and side-effect free; any number of calls may run
// concurrently.
package metar

// Parse decodes a raw report string. It returns (nil, false) only when the
// input is empty, the report-type header is unrecognized, or the station
// identifier is malformed; every other group degrades to field-level absence.
func Parse(raw string) (*ParsedReport, bool) {
	tokens, ok := Tokenize(raw)
	if !ok {
		return nil, false
	}
	c := newCursor(tokens)

	// The two mandatory leading groups: failure here voids the whole parse.
	kind, ok := decodeHeader(c)
	if !ok {
		return nil, false
	}
	station, ok := decodeStation(c)
	if !ok {
		return nil, false
	}

	report := &ParsedReport{
		Kind:      kind,
		StationID: station,
		Raw:       raw,
	}

	// Strict forward grammar order; each stage tries once at the current
	// position and is skipped permanently if it declines.
	if t, ok := decodeIssuanceTime(c); ok {
		report.Time = t
	}
	if w, ok := decodeWind(c); ok {
		report.Wind = w
	}
	if v, ok := decodeVisibility(c); ok {
		report.Visibility = v
	}
	if rvr, ok := decodeRunwayVisualRanges(c); ok {
		report.RunwayVisualRanges = rvr
	}
	if wx, ok := decodePhenomena(c); ok {
		report.Phenomena = wx
	}
	if layers, ok := decodeCloudLayers(c); ok {
		report.CloudLayers = layers
	}
	if td, ok := decodeTempDew(c); ok {
		report.TempDew = td
	}
	if p, ok := decodePressure(c); ok {
		report.Pressure = p
	}
	if remarks, ok := decodeRemarks(c); ok {
		report.Remarks = remarks
	}

	return report, true
}
