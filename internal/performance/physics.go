package performance

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// ISA constants
const (
	R           = 287.058 // Specific gas constant for dry air (J/(kg·K))
	G           = 9.80665 // Gravity (m/s^2)
	T0          = 288.15  // Standard Sea Level Temperature (K)
	P0          = 1013.25 // Standard Sea Level Pressure (hPa)
	L           = 0.0065  // Temperature Lapse Rate (K/m) in Troposphere
	ZeroCelsius = 273.15  // 0°C in Kelvin
	FtPerMeter  = 3.28084
)

// PressureAltitude returns the pressure altitude in feet for a field at the
// given elevation with the given altimeter setting.
// PA = elev + 145442.16 * (1 - (QNH/P0)^0.190261), the ISA barometric
// formula solved for altitude.
func PressureAltitude(fieldElevFt float64, qnhHPa float64) float64 {
	return fieldElevFt + 145442.16*(1-math.Pow(qnhHPa/P0, 0.190261))
}

// DensityAltitude returns the density altitude in feet given a pressure
// altitude and outside air temperature.
func DensityAltitude(pressureAltFt float64, tempCelsius float64) float64 {
	// ISA temperature at pressure altitude
	isaTempK := T0 - (L * (pressureAltFt / FtPerMeter))
	isaTempC := isaTempK - ZeroCelsius

	// DA = PA + 120 * (OAT - ISA_Temp)
	return pressureAltFt + 120*(tempCelsius-isaTempC)
}

// MagneticVariation calculates the magnetic declination for a position and
// time. Returns declination in degrees (+East, -West), or 0 if the world
// magnetic model rejects the inputs.
func MagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	altM := altFt / FtPerMeter

	loc := egm96.NewLocationGeodetic(lat, lon, altM)
	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return 0.0
	}
	return mag.D()
}

// normalizeDeg wraps an angle into [0, 360).
func normalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// angleDiffDeg returns the signed smallest difference a-b in (-180, 180].
func angleDiffDeg(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}
