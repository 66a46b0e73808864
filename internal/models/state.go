package models

// Theme values accepted by Settings.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Settings holds viewer preferences.
type Settings struct {
	Theme  string  `json:"theme"`
	Volume float64 `json:"volume"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() Settings {
	return Settings{Theme: ThemeDark, Volume: 1}
}

// State is everything the persistence layer restores at start-up.
type State struct {
	Favorites []string   `json:"favorites"`
	History   []string   `json:"history"`
	Playlists []Playlist `json:"playlists"`
	Settings  Settings   `json:"settings"`
}
