package metar

import "time"

// Conversion constants used by the field decoders
const (
	// MetersPerStatuteMile converts statute-mile visibility groups to meters.
	MetersPerStatuteMile = 1609.34

	// UnlimitedVisibilityM is the sentinel for meters-native visibility >= 9999
	// ("visibility effectively unlimited").
	UnlimitedVisibilityM = 10000.0

	// lessThanVisibilityFactor approximates "just under" an M-prefixed
	// fractional mile group (M1/4SM). Kept as-is from the legacy decoder;
	// this is an approximation, not a published conversion rule.
	lessThanVisibilityFactor = 0.9

	// inHgToHPa converts inches of mercury to hectopascals.
	inHgToHPa = 0.02953
)

// ReportKind identifies the report type header
type ReportKind string

const (
	KindRoutine ReportKind = "METAR" // routine surface observation
	KindSpecial ReportKind = "SPECI" // special (off-schedule) observation
)

// IssuanceTime is the report-local day-of-month and time. The report carries
// no year or month; callers resolve it against a known reference month.
type IssuanceTime struct {
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Resolve converts the report-local time to an absolute UTC timestamp using
// ref as the reference instant. A report day ahead of the reference day is
// taken to belong to the previous month.
func (t IssuanceTime) Resolve(ref time.Time) time.Time {
	ref = ref.UTC()
	issued := time.Date(ref.Year(), ref.Month(), t.Day, t.Hour, t.Minute, 0, 0, time.UTC)
	if issued.After(ref.Add(24 * time.Hour)) {
		issued = issued.AddDate(0, -1, 0)
	}
	return issued
}

// WindField is the decoded surface wind group. DirectionDeg is absent when
// the wind is variable; VariableFromDeg/VariableToDeg are only set when a
// secondary DDDVDDD group followed the primary wind token.
type WindField struct {
	DirectionDeg    *int `json:"direction_deg,omitempty"`
	SpeedKt         int  `json:"speed_kt"`
	GustKt          *int `json:"gust_kt,omitempty"`
	Variable        bool `json:"variable"`
	VariableFromDeg *int `json:"variable_from_deg,omitempty"`
	VariableToDeg   *int `json:"variable_to_deg,omitempty"`
}

// VisibilityField is the decoded prevailing visibility, normalized to meters.
type VisibilityField struct {
	DistanceM float64 `json:"distance_m"`
	Variable  bool    `json:"variable"`
}

// RunwayVisualRange is one decoded R<rwy>/<vis>[V<vis>]FT group.
type RunwayVisualRange struct {
	Runway       string `json:"runway"`
	VisibilityFt int    `json:"visibility_ft"`
	VariableToFt *int   `json:"variable_to_ft,omitempty"`
}

// Intensity is the leading intensity marker of a weather phenomenon group
type Intensity string

const (
	IntensityLight      Intensity = "light"
	IntensityModerate   Intensity = "moderate"
	IntensityHeavy      Intensity = "heavy"
	IntensityInVicinity Intensity = "in_vicinity"
)

// Descriptor qualifies a weather phenomenon (showers, freezing, blowing, ...)
type Descriptor string

const (
	DescriptorShallow      Descriptor = "shallow"
	DescriptorPatches      Descriptor = "patches"
	DescriptorPartial      Descriptor = "partial"
	DescriptorDrifting     Descriptor = "drifting"
	DescriptorBlowing      Descriptor = "blowing"
	DescriptorShowers      Descriptor = "showers"
	DescriptorThunderstorm Descriptor = "thunderstorm"
	DescriptorFreezing     Descriptor = "freezing"
)

// WeatherPhenomenon is one decoded present-weather group. At least one of
// Precipitation, Obscuration or Other is always non-empty; a bare
// intensity/descriptor with no code is never emitted.
type WeatherPhenomenon struct {
	Intensity     Intensity  `json:"intensity"`
	Descriptor    Descriptor `json:"descriptor,omitempty"`
	Precipitation []string   `json:"precipitation,omitempty"`
	Obscuration   []string   `json:"obscuration,omitempty"`
	Other         []string   `json:"other,omitempty"`
}

// CloudCoverage is the coverage class of a cloud layer group
type CloudCoverage string

const (
	CoverageClear              CloudCoverage = "clear"
	CoverageNoSignificantCloud CloudCoverage = "no_significant_cloud"
	CoverageVerticalVisibility CloudCoverage = "vertical_visibility"
	CoverageFew                CloudCoverage = "few"
	CoverageScattered          CloudCoverage = "scattered"
	CoverageBroken             CloudCoverage = "broken"
	CoverageOvercast           CloudCoverage = "overcast"
)

// ConvectiveType is the optional convective suffix of a cloud layer
type ConvectiveType string

const (
	ConvectiveCumulonimbus    ConvectiveType = "CB"
	ConvectiveToweringCumulus ConvectiveType = "TCU"
)

// CloudLayer is one decoded sky-condition group. Clear and no-significant-cloud
// layers never carry an altitude; for vertical visibility the altitude is the
// indicative ceiling, not a cloud base.
type CloudLayer struct {
	Coverage       CloudCoverage   `json:"coverage"`
	BaseAltitudeFt *int            `json:"base_altitude_ft,omitempty"`
	Convective     *ConvectiveType `json:"convective,omitempty"`
}

// TemperatureDewpoint is the decoded T/D group, both sides signed Celsius.
type TemperatureDewpoint struct {
	TemperatureC int `json:"temperature_c"`
	DewpointC    int `json:"dewpoint_c"`
}

// PressureField is the decoded altimeter group, normalized to hectopascals.
type PressureField struct {
	QNHhPa float64 `json:"qnh_hpa"`
}

// ParsedReport is the intermediate decoded report. It is produced once per
// Parse call and never mutated afterward; every field past StationID may be
// absent when the corresponding group was missing or unrecognized.
type ParsedReport struct {
	Kind               ReportKind           `json:"kind"`
	StationID          string               `json:"station_id"`
	Time               *IssuanceTime        `json:"time,omitempty"`
	Wind               *WindField           `json:"wind,omitempty"`
	Visibility         *VisibilityField     `json:"visibility,omitempty"`
	RunwayVisualRanges []RunwayVisualRange  `json:"runway_visual_ranges,omitempty"`
	Phenomena          []WeatherPhenomenon  `json:"phenomena,omitempty"`
	CloudLayers        []CloudLayer         `json:"cloud_layers,omitempty"`
	TempDew            *TemperatureDewpoint `json:"temperature_dewpoint,omitempty"`
	Pressure           *PressureField       `json:"pressure,omitempty"`
	Remarks            string               `json:"remarks,omitempty"`
	Raw                string               `json:"raw"`
}
