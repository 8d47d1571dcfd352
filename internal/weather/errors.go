package weather

import "errors"

var (
	// ErrNoCoordinates is returned when neither coordinates nor a city are known.
	ErrNoCoordinates = errors.New("no coordinates available")

	// ErrCityNotFound is returned when geocoding finds no match.
	ErrCityNotFound = errors.New("city not found")

	// ErrUpstream is returned for non-2xx responses from the weather API.
	ErrUpstream = errors.New("weather api error")
)
