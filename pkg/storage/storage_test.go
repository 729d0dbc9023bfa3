package storage_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/camxfer/pkg/storage"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{name: "plain", key: "Collections/C1/Uploads/u1/media.csv"},
		{name: "sanitized upload", key: "Collections/C1/Uploads/cam.2021..06/media.csv"},
		{name: "double dot file", key: "Collections/C1/Uploads/u1/img/IMG..JPG"},
		{name: "empty", key: "", want: storage.ErrEmptyKey},
		{name: "parent segment", key: "Collections/../secret", want: storage.ErrInvalidKey},
		{name: "leading parent", key: "../media.csv", want: storage.ErrInvalidKey},
		{name: "trailing parent", key: "Collections/C1/..", want: storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storage.ValidateKey(tt.key)
			if !errors.Is(err, tt.want) {
				t.Errorf("validate %q: got %v, want %v", tt.key, err, tt.want)
			}
		})
	}
}
