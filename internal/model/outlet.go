package model

// Outlet represents one retail location: identity, address, operating
// window, and coordinates. Coordinates stay nil until the geocode
// backfill resolves the address.
type Outlet struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	WorkDayStart string   `json:"work_day_start,omitempty"`
	WorkDayEnd   string   `json:"work_day_end,omitempty"`
	StartTime    string   `json:"start_time,omitempty"`
	EndTime      string   `json:"end_time,omitempty"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// Geocoded reports whether both coordinates are present.
func (o Outlet) Geocoded() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// Row is a single result row from an executed query, keyed by column name.
type Row map[string]any
