// Package playback supervises the external processes that play alarm sounds.
//
// Registry maps alarm ids to live process handles behind a single lock and
// keeps one separate slot for sound previews. Player spawns the configured
// command-line audio program. SoundResolver maps symbolic sound names to files.
// ReapOrphan finds players left behind by a previous daemon instance.
package playback
