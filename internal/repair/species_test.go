package repair_test

import (
	"testing"

	"github.com/JaimeStill/camxfer/internal/ledger"
	"github.com/JaimeStill/camxfer/internal/repair"
)

func TestCorrectSpecies(t *testing.T) {
	live := ledger.Attributes{
		ledger.AttrCommonName:     "Raptor",
		ledger.AttrScientificName: "Falconiformes",
	}

	tests := []struct {
		name  string
		attrs ledger.Attributes
		path  string
		want  string
		ok    bool
	}{
		{name: "corrects common name", attrs: live, path: "img/0001.jpg", want: "Falconiformes", ok: true},
		{name: "unknown asset", attrs: live, path: "img/0002.jpg", want: "Raptor", ok: false},
		{
			name:  "no scientific name",
			attrs: ledger.Attributes{ledger.AttrCommonName: "Raptor"},
			path:  "img/0001.jpg",
			want:  "Raptor",
			ok:    false,
		},
		{
			name: "stored value differs",
			attrs: ledger.Attributes{
				ledger.AttrCommonName:     "Hawk",
				ledger.AttrScientificName: "Buteo",
			},
			path: "img/0001.jpg",
			want: "Raptor",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := recorded(t)

			if got := repair.CorrectSpecies(l, tt.path, tt.attrs); got != tt.ok {
				t.Fatalf("corrected: got %v, want %v", got, tt.ok)
			}
			obs := l.Observations.Lines()[0]
			if got := ledger.Column(obs, ledger.ObservationSpeciesColumn); got != tt.want {
				t.Errorf("species: got %s, want %s", got, tt.want)
			}
			if l.Dirty() != tt.ok {
				t.Errorf("dirty: got %v, want %v", l.Dirty(), tt.ok)
			}
		})
	}
}

func TestCorrectSpeciesOnce(t *testing.T) {
	l := recorded(t)
	live := ledger.Attributes{
		ledger.AttrCommonName:     "Raptor",
		ledger.AttrScientificName: "Falconiformes",
	}

	repair.CorrectSpecies(l, "img/0001.jpg", live)
	if repair.CorrectSpecies(l, "img/0001.jpg", live) {
		t.Error("second correction should be a no-op")
	}
}
