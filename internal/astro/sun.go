// Package astro computes sunrise, sunset and civil twilight for a location.
//
// The calculation follows the NOAA simplified solar position model
// (mean anomaly, equation of centre, ecliptic longitude, declination).
// Accuracy is within a couple of minutes for non-polar latitudes, which is
// well inside what lighting schedules need.
package astro

import (
	"math"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// Solar elevation angles (degrees) that define each event.
const (
	elevationSunriseSunset = -0.833 // upper limb at horizon, with refraction
	elevationCivil         = -6.0

	julianUnixEpoch = 2440587.5
	julian2000      = 2451545.0
	secondsPerDay   = 86400.0

	obliquity = 23.4397 // degrees
)

// SunTimes holds the day's solar events as local wall-clock minutes.
//
// A nil field means the event does not occur that day (polar day or night).
type SunTimes struct {
	Sunrise   *timeutil.Clock `json:"sunrise"`
	Sunset    *timeutil.Clock `json:"sunset"`
	CivilDawn *timeutil.Clock `json:"civil_dawn"`
	CivilDusk *timeutil.Clock `json:"civil_dusk"`
	SolarNoon *timeutil.Clock `json:"solar_noon"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Timezone  string          `json:"timezone"`
}

// Calculator computes SunTimes. It is stateless.
type Calculator struct{}

// NewCalculator returns a Calculator.
func NewCalculator() Calculator { return Calculator{} }

// SunTimes computes the solar events for latitude/longitude (degrees, east
// positive) on date d, expressed in loc.
func (Calculator) SunTimes(lat, lon float64, d timeutil.Date, loc *time.Location) SunTimes {
	return Compute(lat, lon, d, loc)
}

// Compute is the functional form of Calculator.SunTimes.
func Compute(lat, lon float64, d timeutil.Date, loc *time.Location) SunTimes {
	if loc == nil {
		loc = time.UTC
	}

	noon := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
	n := math.Round(float64(noon.Unix())/secondsPerDay + julianUnixEpoch - julian2000)

	meanSolarTime := n - lon/360
	m := normaliseDegrees(357.5291 + 0.98560028*meanSolarTime)
	mRad := radians(m)
	centre := 1.9148*math.Sin(mRad) + 0.0200*math.Sin(2*mRad) + 0.0003*math.Sin(3*mRad)
	lambda := normaliseDegrees(m + centre + 180 + 102.9372)
	lambdaRad := radians(lambda)

	transit := julian2000 + meanSolarTime + 0.0053*math.Sin(mRad) - 0.0069*math.Sin(2*lambdaRad)

	sinDec := math.Sin(lambdaRad) * math.Sin(radians(obliquity))
	cosDec := math.Cos(math.Asin(sinDec))

	st := SunTimes{
		Latitude:  lat,
		Longitude: lon,
		Timezone:  loc.String(),
		SolarNoon: clockAt(transit, loc),
	}
	st.Sunrise, st.Sunset = eventPair(transit, lat, sinDec, cosDec, elevationSunriseSunset, loc)
	st.CivilDawn, st.CivilDusk = eventPair(transit, lat, sinDec, cosDec, elevationCivil, loc)
	return st
}

// eventPair returns the morning and evening crossing of the given elevation.
func eventPair(transit, lat, sinDec, cosDec, elevation float64, loc *time.Location) (*timeutil.Clock, *timeutil.Clock) {
	latRad := radians(lat)
	cosH := (math.Sin(radians(elevation)) - math.Sin(latRad)*sinDec) / (math.Cos(latRad) * cosDec)
	if cosH < -1 || cosH > 1 || math.IsNaN(cosH) {
		return nil, nil
	}
	h := degrees(math.Acos(cosH)) / 360
	return clockAt(transit-h, loc), clockAt(transit+h, loc)
}

func clockAt(julian float64, loc *time.Location) *timeutil.Clock {
	unix := (julian - julianUnixEpoch) * secondsPerDay
	t := time.Unix(int64(math.Round(unix/60))*60, 0).In(loc)
	c := timeutil.ClockOf(t)
	return &c
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func normaliseDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
