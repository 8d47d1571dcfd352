package weather

import "time"

// IlluminancePerWattM2 converts shortwave radiation (W/m²) to an
// approximate illuminance in lux.
const IlluminancePerWattM2 = 120.0

// Snapshot is the current weather at one location.
type Snapshot struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Temperature        float64   `json:"temperature"`
	Humidity           float64   `json:"humidity"`
	CloudCover         float64   `json:"cloud_cover"`
	WindSpeed          float64   `json:"wind_speed"`
	WeatherCode        int       `json:"weather_code"`
	IsDay              bool      `json:"is_day"`
	ShortwaveRadiation float64   `json:"shortwave_radiation"`
	Illuminance        float64   `json:"illuminance"`
	FetchedAt          time.Time `json:"fetched_at"`
	Stale              bool      `json:"stale"`
}

// Location is a geocoding result.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
}

// openMeteoResponse is the subset of the forecast response we read.
type openMeteoResponse struct {
	Current struct {
		Temperature        float64 `json:"temperature_2m"`
		Humidity           float64 `json:"relative_humidity_2m"`
		CloudCover         float64 `json:"cloud_cover"`
		WindSpeed          float64 `json:"wind_speed_10m"`
		WeatherCode        int     `json:"weather_code"`
		IsDay              int     `json:"is_day"`
		ShortwaveRadiation float64 `json:"shortwave_radiation"`
	} `json:"current"`
}

type geocodingResponse struct {
	Results []Location `json:"results"`
}

func estimateIlluminance(shortwave float64) float64 {
	if shortwave <= 0 {
		return 0
	}
	return shortwave * IlluminancePerWattM2
}
