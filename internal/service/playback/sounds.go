package playback

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// Sound is one entry of the ringtone catalogue.
type Sound struct {
	// Name is the symbolic name shown to users.
	Name string `json:"name"`
	// File is the resource filename inside the sounds directory.
	File string `json:"file"`
}

const (
	// DefaultSound is played when an alarm names no sound.
	DefaultSound = "Radial"
	// ringtoneExt is the extension of the stock ringtones.
	ringtoneExt = ".m4r"
)

// catalogue lists the stock ringtones. Radial ships under an irregular name.
//
//nolint:gochecknoglobals // Read-only lookup table.
var catalogue = []Sound{
	{Name: "Apex", File: "Apex.m4r"},
	{Name: "Beacon", File: "Beacon.m4r"},
	{Name: "Bulletin", File: "Bulletin.m4r"},
	{Name: "By The Seaside", File: "By_The_Seaside.m4r"},
	{Name: "Chimes", File: "Chimes.m4r"},
	{Name: "Circuit", File: "Circuit.m4r"},
	{Name: "Constellation", File: "Constellation.m4r"},
	{Name: "Cosmic", File: "Cosmic.m4r"},
	{Name: "Crystals", File: "Crystals.m4r"},
	{Name: "Hillside", File: "Hillside.m4r"},
	{Name: "Illuminate", File: "Illuminate.m4r"},
	{Name: "Night Owl", File: "Night_Owl.m4r"},
	{Name: "Opening", File: "Opening.m4r"},
	{Name: "Playtime", File: "Playtime.m4r"},
	{Name: "Presto", File: "Presto.m4r"},
	{Name: "Radar", File: "Radar.m4r"},
	{Name: "Radial", File: "Radial-EncoreInfinitum.m4r"},
	{Name: "Ripples", File: "Ripples.m4r"},
	{Name: "Sencha", File: "Sencha.m4r"},
	{Name: "Signal", File: "Signal.m4r"},
	{Name: "Silk", File: "Silk.m4r"},
	{Name: "Slow Rise", File: "Slow_Rise.m4r"},
	{Name: "Stargaze", File: "Stargaze.m4r"},
	{Name: "Summit", File: "Summit.m4r"},
	{Name: "Twinkle", File: "Twinkle.m4r"},
	{Name: "Uplift", File: "Uplift.m4r"},
	{Name: "Waves", File: "Waves.m4r"},
}

// SoundResolver maps symbolic sound names to files in a sounds directory.
type SoundResolver struct {
	// dir is the directory the catalogue files live in.
	dir string
	// byKey indexes the catalogue by normalized name.
	byKey map[string]Sound
}

// NewSoundResolver creates a resolver over the sounds directory.
func NewSoundResolver(dir string) *SoundResolver {
	return &SoundResolver{
		dir: dir,
		byKey: lo.KeyBy(catalogue, func(s Sound) string {
			return normalizeSoundName(s.Name)
		}),
	}
}

// Canonical returns the catalogue name for ref, accepting display names
// ("By The Seaside") and file values ("By_The_Seaside.m4r") in any case.
// Absolute paths are returned unchanged.
func (r *SoundResolver) Canonical(ref string) (string, error) {
	if filepath.IsAbs(ref) {
		return ref, nil
	}

	sound, ok := r.byKey[normalizeSoundName(ref)]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownSound, ref)
	}

	return sound.Name, nil
}

// Resolve returns the absolute path of the sound file for ref.
// Absolute paths must point at an existing file.
func (r *SoundResolver) Resolve(ref string) (string, error) {
	if filepath.IsAbs(ref) {
		if _, err := os.Stat(ref); err != nil {
			return "", fmt.Errorf("%w: %q: %w", domain.ErrUnknownSound, ref, err)
		}

		return ref, nil
	}

	sound, ok := r.byKey[normalizeSoundName(ref)]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownSound, ref)
	}

	path, err := filepath.Abs(filepath.Join(r.dir, sound.File))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}

	return path, nil
}

// Sounds returns the catalogue in display order.
func (r *SoundResolver) Sounds() []Sound {
	return append([]Sound(nil), catalogue...)
}

// normalizeSoundName folds case, the file extension and underscores.
func normalizeSoundName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(strings.ToLower(name), ringtoneExt)
	name = strings.ReplaceAll(name, "_", " ")

	return name
}
