// Package ledger maintains the deployment, media, and observation tables that
// record which assets of an upload have been migrated.
package ledger

// Ledger is the three-table record set of one upload folder.
type Ledger struct {
	Deployments  *Table
	Media        *Table
	Observations *Table
}

// New creates an empty ledger.
func New(mode MatchMode) *Ledger {
	return &Ledger{
		Deployments:  NewTable(Deployments, mode, nil),
		Media:        NewTable(MediaTable, mode, nil),
		Observations: NewTable(Observations, mode, nil),
	}
}

// Tables returns the three tables in file order.
func (l *Ledger) Tables() []*Table {
	return []*Table{l.Deployments, l.Media, l.Observations}
}

// Dirty reports whether any table was mutated since the ledger was loaded.
func (l *Ledger) Dirty() bool {
	dirty := false
	for _, t := range l.Tables() {
		dirty = dirty || t.Changed()
	}
	return dirty
}

// HasMedia reports whether a media row exists for the asset at mediaPath.
func (l *Ledger) HasMedia(mediaPath string) bool {
	return l.Media.Contains(mediaPath)
}

// Record appends the deployment, media, and observation rows of one asset
// stored at mediaPath. Each table keeps at most one entry per identity, so
// re-recording an asset changes nothing. With no species given, the single
// species described by attrs is recorded.
func (l *Ledger) Record(collectionID, mediaPath string, attrs Attributes, species ...Species) bool {
	if len(species) == 0 {
		species = []Species{attrs.Species()}
	}

	observations := make([]Record, len(species))
	for i, s := range species {
		observations[i] = NewObservation(collectionID, mediaPath, attrs, s)
	}

	changed := l.Deployments.Insert(NewDeployment(collectionID, attrs))
	changed = l.Media.Insert(NewMedia(collectionID, mediaPath, attrs)) || changed
	changed = l.Observations.InsertAll(observations) || changed
	return changed
}
