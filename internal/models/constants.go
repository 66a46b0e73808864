package models

// Defaults applied when a playlist entry carries no name or group.
const (
	DefaultChannelName = "Unnamed Channel"
	DefaultGroup       = "General"
)

// AllCategories selects every group when filtering.
const AllCategories = "all"

// ChannelTypeLive marks Xtream live streams.
const ChannelTypeLive = "live"

// SourceKind records where a saved playlist came from.
type SourceKind string

const (
	SourceURL    SourceKind = "url"
	SourceText   SourceKind = "text"
	SourceFile   SourceKind = "file"
	SourceSample SourceKind = "sample"
	SourceXtream SourceKind = "xtream"
	// SourceSaved marks a snapshot of the whole live collection.
	SourceSaved SourceKind = "saved"
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceURL, SourceText, SourceFile, SourceSample, SourceXtream, SourceSaved:
		return true
	}
	return false
}
