// Package manifest reads the exported source manifest that names a
// collection, its upload batches, and the assets of each batch.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/JaimeStill/camxfer/internal/ledger"
)

// Required top-level keys.
const (
	KeyBasePath = "BasePath"
	KeyUploads  = "Uploads"
)

// Metadatum is one named attribute value of an asset.
type Metadatum struct {
	Attribute string `json:"Attribute"`
	Value     string `json:"Value"`
}

// Asset is one image of an upload batch.
type Asset struct {
	RelativePath string      `json:"RelativePath"`
	Metadata     []Metadatum `json:"Metadata"`
}

// HasMetadata reports whether the asset carries primary metadata.
func (a Asset) HasMetadata() bool {
	return len(a.Metadata) > 0
}

// Attributes flattens the metadata list. Later entries win on repeated names.
func (a Asset) Attributes() ledger.Attributes {
	attrs := make(ledger.Attributes, len(a.Metadata))
	for _, m := range a.Metadata {
		attrs[m.Attribute] = m.Value
	}
	return attrs
}

// Upload is one upload batch of a collection.
type Upload struct {
	Name   string  `json:"Upload"`
	Images []Asset `json:"Images"`
}

// Manifest describes one source collection.
type Manifest struct {
	BasePath string   `json:"BasePath"`
	Uploads  []Upload `json:"Uploads"`
}

// CollectionID returns the source collection identifier, the last element
// of the base path.
func (m *Manifest) CollectionID() string {
	return path.Base(m.BasePath)
}

// UploadPath returns the source folder of an upload batch.
func (m *Manifest) UploadPath(u Upload) string {
	return path.Join(m.BasePath, "Uploads", u.Name)
}

// AssetCount returns the number of assets across all uploads.
func (m *Manifest) AssetCount() int {
	n := 0
	for _, u := range m.Uploads {
		n += len(u.Images)
	}
	return n
}

// Load reads and parses the manifest at path.
func Load(p string) (*Manifest, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes a manifest. A missing BasePath or Uploads key is an
// ErrMissingKey error.
func Parse(data []byte) (*Manifest, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for _, k := range []string{KeyUploads, KeyBasePath} {
		if _, ok := keys[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, k)
		}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.BasePath == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrMissingKey, KeyBasePath)
	}
	return &m, nil
}
