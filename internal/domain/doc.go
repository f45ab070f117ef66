// Package domain models flood-risk predictions derived from NASA POWER daily
// point data.
//
// # Data Source
//
// Environmental measurements come from the NASA POWER "temporal/daily/point"
// API (https://power.larc.nasa.gov/docs/services/api/temporal/daily/). A
// request names the parameters, a community code (AG), a coordinate and a
// date window; the response carries one date-indexed map per parameter:
//
//	{"properties": {"parameter": {"PRECTOTCORR": {"20260410": 12.4, ...}, ...}}}
//
// # Feature Vector
//
// The classifier consumes exactly eight parameters in this order:
//
//	PRECTOTCORR        precipitation, bias corrected (mm/day)
//	T2M_MIN            minimum temperature at 2 m (°C)
//	T2M_MAX            maximum temperature at 2 m (°C)
//	RH2M               relative humidity at 2 m (%)
//	WS2M               wind speed at 2 m (m/s)
//	WD2M               wind direction at 2 m (degrees)
//	PS                 surface pressure (kPa)
//	ALLSKY_SFC_SW_DWN  all-sky surface shortwave irradiance (kWh/m²/day)
//
// Unknown values:
//
//	-999 is the POWER fill value for data that has not been processed yet.
//	Recent days are usually filled for some parameters, so the fetcher walks
//	the window newest-first and keeps the first date where every parameter is
//	present and not -999. A FeatureVector holding a fill value is never built.
//
// # Risk Interpretation
//
// The classifier returns the probability of flooding. It is bucketed into
// three categories, boundaries belonging to the higher bucket:
//
//	p < 0.30         safe       "Aman"               rendah  green
//	0.30 <= p < 0.60 caution    "Waspada"            sedang  yellow
//	p >= 0.60        high_risk  "Berpotensi Banjir"  tinggi  red
//
// # Slugs
//
// Locations are addressed by slug: the display name lowercased with spaces
// replaced by hyphens ("Luwu Timur" -> "luwu-timur"). See [Slugify].
package domain
