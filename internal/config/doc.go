// Package config defines the settings shared by the alarm daemon and the
// helper CLI and provides helpers to load, validate and save them in YAML.
//
// Validate fills in platform defaults: the stock audio player and sounds
// directory, the data directory under the user's home, and the auto-stop
// ceiling for ringing alarms.
package config
