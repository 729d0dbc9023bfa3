package collection

import (
	"path"
	"strings"
)

// Destination layout and sidecar names.
const (
	CollectionsFolder = "Collections"
	UploadsFolder     = "Uploads"

	CollectionFile  = "collection.json"
	PermissionsFile = "permissions.json"
	UploadMetaFile  = "UploadMeta.json"

	JSONContentType = "application/json"
)

// Base returns the destination folder of a collection.
func Base(id string) string {
	return path.Join(CollectionsFolder, id)
}

// UploadsBase returns the destination folder holding a collection's uploads,
// with a trailing slash for prefix listing.
func UploadsBase(id string) string {
	return path.Join(Base(id), UploadsFolder) + "/"
}

// Sanitize converts a source upload name into its destination folder name:
// the first space becomes ".", remaining spaces "_", and "-" becomes ".".
func Sanitize(upload string) string {
	s := strings.Replace(upload, " ", ".", 1)
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", ".")
}

// UploadBase returns the destination folder of one upload batch.
func UploadBase(id, upload string) string {
	return path.Join(Base(id), UploadsFolder, Sanitize(upload))
}
