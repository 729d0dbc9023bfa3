package ledger

import (
	"strconv"
	"strings"
	"time"
)

// Metadata attribute names carried by assets.
const (
	AttrLocationID        = "locationID"
	AttrLocationName      = "locationName"
	AttrLocationLongitude = "locationLongitude"
	AttrLocationLatitude  = "locationLatitude"
	AttrLocationElevation = "locationElevation"
	AttrDateTimeTaken     = "dateTimeTaken"
	AttrDateYearTaken     = "dateYearTaken"
	AttrDateDayOfYear     = "dateDayOfYearTaken"
	AttrDateHourTaken     = "dateHourTaken"
	AttrCommonName        = "metaSpeciesCommonName"
	AttrScientificName    = "speciesScientificName"
	AttrSpeciesCount      = "metaSpeciesCount"
)

// Attributes is the sparse set of named metadata values of one asset.
// Any attribute may be absent.
type Attributes map[string]string

// Species is one species entry of an asset.
type Species struct {
	CommonName     string
	ScientificName string
	Count          string
}

// Name returns the best available species name: the scientific name when
// known, else the common name.
func (s Species) Name() string {
	if s.ScientificName != "" {
		return s.ScientificName
	}
	return s.CommonName
}

// Species returns the single species entry described by the attributes.
func (a Attributes) Species() Species {
	return Species{
		CommonName:     a[AttrCommonName],
		ScientificName: a[AttrScientificName],
		Count:          a[AttrSpeciesCount],
	}
}

// Timestamp derives the capture time of the asset. A millisecond epoch in
// dateTimeTaken wins; otherwise the year, the 1-based day of year and the
// optional hour are combined. Times are UTC.
func (a Attributes) Timestamp() (time.Time, bool) {
	if v := strings.TrimSpace(a[AttrDateTimeTaken]); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	}

	year, err := strconv.Atoi(strings.TrimSpace(a[AttrDateYearTaken]))
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(strings.TrimSpace(a[AttrDateDayOfYear]))
	if err != nil {
		return time.Time{}, false
	}

	ts := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1)
	if hour, err := strconv.Atoi(strings.TrimSpace(a[AttrDateHourTaken])); err == nil {
		ts = ts.Add(time.Duration(hour) * time.Hour)
	}
	return ts, true
}

// FormatTimestamp renders t as ISO-8601 without zone, adding microseconds
// only when the time has a fractional second.
func FormatTimestamp(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02T15:04:05.000000")
	}
	return t.Format("2006-01-02T15:04:05")
}
