package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Istanbul")
	if err != nil {
		panic(err)
	}
}

// force the timezone to match the portal's, since grade timestamps are
// compared against wall-clock days and the host may run anywhere
func Now() time.Time {
	return time.Now().In(Location)
}
