package arcanet

// Profile carries all per-version player state for one (game, version)
// pair. The Mapping holds the state itself; the tags identify whose
// state it is.
type Profile struct {
	*Mapping

	Game    string
	Version int
	RefID   string
	ExtID   int64
}

// NewProfile returns an empty profile tagged for one player.
func NewProfile(game string, version int, refid string, extid int64) *Profile {
	return &Profile{
		Mapping: NewMapping(),
		Game:    game,
		Version: version,
		RefID:   refid,
		ExtID:   extid,
	}
}

// CloneProfile deep-copies the profile, tags included.
func (p *Profile) CloneProfile() *Profile {
	return &Profile{
		Mapping: p.Mapping.Clone(),
		Game:    p.Game,
		Version: p.Version,
		RefID:   p.RefID,
		ExtID:   p.ExtID,
	}
}
