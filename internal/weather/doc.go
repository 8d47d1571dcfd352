// Package weather fetches current conditions from Open-Meteo.
//
// Snapshots are cached per rounded coordinate. A cached snapshot younger
// than the staleness threshold is returned without a request; when a
// request fails, an older cached snapshot is returned flagged Stale.
// Sites without coordinates can be geocoded by city name.
package weather
