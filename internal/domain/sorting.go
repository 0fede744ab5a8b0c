package domain

// SortingStrategy enumerates the orderings a caller may request.
// All of them are ascending by default (A-Z, oldest-newest, 0-n).
// Backends map these best-effort onto their native ordering; a strategy a
// backend cannot express falls back to a stable default order instead of
// failing the request.
type SortingStrategy int

const (
	// SortByArtistName sorts alphabetically by artist name
	SortByArtistName SortingStrategy = iota

	// SortByCreationDate sorts by creation or release date, oldest to newest
	SortByCreationDate

	// SortByModificationDate sorts by modification or update date, oldest to newest
	SortByModificationDate

	// SortByName sorts alphabetically by name or title
	SortByName

	// SortByPlayCount sorts by the user's play count, least to most
	SortByPlayCount
)

// String returns a human-readable representation of the strategy
func (s SortingStrategy) String() string {
	switch s {
	case SortByArtistName:
		return "artist_name"
	case SortByCreationDate:
		return "creation_date"
	case SortByModificationDate:
		return "modification_date"
	case SortByName:
		return "name"
	case SortByPlayCount:
		return "play_count"
	default:
		return "unknown"
	}
}

// SortingRule pairs a strategy with a direction.
type SortingRule struct {
	Strategy SortingStrategy
	Reverse  bool
}
