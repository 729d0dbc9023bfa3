package ledger

import (
	"path"
)

// MediaType is the media type recorded for every image in the media table.
const MediaType = "image/jpg"

// Column positions that other packages read or rewrite.
const (
	DeploymentLongitudeColumn = 3
	DeploymentLatitudeColumn  = 4
	ObservationMediaColumn    = 3
	ObservationSpeciesColumn  = 8
	ObservationCommentsColumn = 19
)

// Record is a typed ledger row that can be encoded to row text.
type Record interface {
	// Key is the identity the row is matched by.
	Key() string
	// Values returns the row's column values in file order.
	Values() []string
}

// DeploymentID returns the composite identity of a deployment.
func DeploymentID(collectionID, locationID string) string {
	return collectionID + ":" + locationID
}

// CommonNameTag returns the durable marker of an originally recorded common name.
func CommonNameTag(name string) string {
	return "[COMMONNAME:" + name + "]"
}

// Deployment is one camera placement. Only the location attributes are known
// at import time; the remaining fields keep their placeholder values.
type Deployment struct {
	ID           string
	LocationID   string
	LocationName string
	Longitude    string
	Latitude     string
	Elevation    string
}

// NewDeployment builds the deployment of an asset in a collection.
func NewDeployment(collectionID string, attrs Attributes) Deployment {
	return Deployment{
		ID:           DeploymentID(collectionID, attrs[AttrLocationID]),
		LocationID:   attrs[AttrLocationID],
		LocationName: attrs[AttrLocationName],
		Longitude:    attrs[AttrLocationLongitude],
		Latitude:     attrs[AttrLocationLatitude],
		Elevation:    attrs[AttrLocationElevation],
	}
}

func (d Deployment) Key() string { return d.ID }

func (d Deployment) Values() []string {
	return []string{
		d.ID,
		d.LocationID,
		d.LocationName,
		d.Longitude,
		d.Latitude,
		"0", // coordinate uncertainty
		"",  // start
		"",  // end
		"",  // setup by
		"",  // camera id
		"",  // camera model
		"0", // camera interval
		d.Elevation,
		"0.0",   // camera tilt
		"0",     // camera heading
		"false", // timestamp issues
		"",      // bait use
		"",      // session
		"",      // array
		"",      // feature type
		"",      // habitat
		"",      // tags
		"",      // notes
	}
}

// Media is one stored image. Its identity is the destination path.
type Media struct {
	ID           string
	DeploymentID string
}

// NewMedia builds the media row of the asset stored at mediaPath.
func NewMedia(collectionID, mediaPath string, attrs Attributes) Media {
	return Media{
		ID:           mediaPath,
		DeploymentID: DeploymentID(collectionID, attrs[AttrLocationID]),
	}
}

func (m Media) Key() string { return m.ID }

func (m Media) Values() []string {
	return []string{
		m.ID,
		m.DeploymentID,
		m.ID, // sequence id
		"",   // capture method
		"",   // timestamp
		m.ID, // file path
		path.Base(m.ID),
		MediaType,
		"",      // exif data
		"false", // favorite
		"",      // comments
	}
}

// Observation is one species seen in one image.
type Observation struct {
	DeploymentID string
	MediaID      string
	Timestamp    string
	Species      Species
}

// NewObservation builds the observation of one species in the asset stored at mediaPath.
func NewObservation(collectionID, mediaPath string, attrs Attributes, species Species) Observation {
	o := Observation{
		DeploymentID: DeploymentID(collectionID, attrs[AttrLocationID]),
		MediaID:      mediaPath,
		Species:      species,
	}
	if ts, ok := attrs.Timestamp(); ok {
		o.Timestamp = FormatTimestamp(ts)
	}
	return o
}

func (o Observation) Key() string { return o.MediaID }

func (o Observation) Values() []string {
	count := o.Species.Count
	if count == "" {
		count = "0"
	}

	comment := ""
	if o.Species.CommonName != "" {
		comment = CommonNameTag(o.Species.CommonName)
	}

	return []string{
		"", // observation id
		o.DeploymentID,
		"", // sequence id
		o.MediaID,
		o.Timestamp,
		"",      // observation type
		"false", // camera setup
		"",      // taxon id
		o.Species.Name(),
		count,
		"0", // count new
		"",  // life stage
		"",  // sex
		"",  // behaviour
		"",  // individual id
		"",  // classification method
		"",  // classified by
		"",  // classification timestamp
		"1.0",
		comment,
	}
}
