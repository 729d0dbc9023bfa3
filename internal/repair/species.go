package repair

import (
	"github.com/JaimeStill/camxfer/internal/ledger"
)

// CorrectSpecies replaces the species column of the first observation row of
// mediaPath when it still holds the common name and the live attributes now
// supply a scientific name. Only that one row is examined.
func CorrectSpecies(l *ledger.Ledger, mediaPath string, attrs ledger.Attributes) bool {
	common := attrs[ledger.AttrCommonName]
	scientific := attrs[ledger.AttrScientificName]
	if common == "" || scientific == "" || common == scientific {
		return false
	}

	i := l.Observations.Find(mediaPath)
	if i < 0 {
		return false
	}

	row := l.Observations.Rows()[i].Text
	fields := ledger.SplitFields(row)
	if len(fields) <= ledger.ObservationSpeciesColumn {
		return false
	}

	f := fields[ledger.ObservationSpeciesColumn]
	if f.Value != common {
		return false
	}
	return l.Observations.Set(i, ledger.ReplaceField(row, f, scientific))
}
