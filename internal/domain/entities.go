package domain

import "time"

// MediaType distinguishes the content types addressable by URI
type MediaType int

const (
	MediaTypeAlbum MediaType = iota
	MediaTypeArtist
	MediaTypeAudio
	MediaTypeGenre
	MediaTypePlaylist
)

// String returns a human-readable representation of the media type
func (t MediaType) String() string {
	switch t {
	case MediaTypeAlbum:
		return "album"
	case MediaTypeArtist:
		return "artist"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeGenre:
		return "genre"
	case MediaTypePlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// Item is the polymorphic interface for entities that can appear in mixed
// lists (search results, activity tabs). The URI is the only piece of
// ownership information an entity carries; everything else is display
// metadata.
type Item interface {
	// ItemURI returns the entity's URI, owned by exactly one provider
	ItemURI() string

	// ItemTitle returns the display title or name
	ItemTitle() string

	// ItemType returns the entity's media type
	ItemType() MediaType
}

// Album represents a music album
type Album struct {
	URI        string    `json:"uri"`
	Title      string    `json:"title"`
	ArtistURI  string    `json:"artist_uri,omitempty"`
	ArtistName string    `json:"artist_name,omitempty"`
	Year       int       `json:"year,omitempty"`
	TrackCount int       `json:"track_count,omitempty"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	PlayCount  int       `json:"play_count,omitempty"`
}

func (a Album) ItemURI() string     { return a.URI }
func (a Album) ItemTitle() string   { return a.Title }
func (a Album) ItemType() MediaType { return MediaTypeAlbum }

// Artist represents a music artist
type Artist struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	PlayCount int       `json:"play_count,omitempty"`
}

func (a Artist) ItemURI() string     { return a.URI }
func (a Artist) ItemTitle() string   { return a.Name }
func (a Artist) ItemType() MediaType { return MediaTypeArtist }

// Audio represents a single playable track
type Audio struct {
	URI         string        `json:"uri"`
	PlaybackURI string        `json:"playback_uri,omitempty"`
	Title       string        `json:"title"`
	ArtistURI   string        `json:"artist_uri,omitempty"`
	ArtistName  string        `json:"artist_name,omitempty"`
	AlbumURI    string        `json:"album_uri,omitempty"`
	AlbumTitle  string        `json:"album_title,omitempty"`
	GenreName   string        `json:"genre_name,omitempty"`
	Year        int           `json:"year,omitempty"`
	TrackNumber int           `json:"track_number,omitempty"`
	DiscNumber  int           `json:"disc_number,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	MimeType    string        `json:"mime_type,omitempty"`
	CreatedAt   time.Time     `json:"created_at,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at,omitempty"`
	PlayCount   int           `json:"play_count,omitempty"`
}

func (a Audio) ItemURI() string     { return a.URI }
func (a Audio) ItemTitle() string   { return a.Title }
func (a Audio) ItemType() MediaType { return MediaTypeAudio }

// Genre represents a music genre
type Genre struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

func (g Genre) ItemURI() string     { return g.URI }
func (g Genre) ItemTitle() string   { return g.Name }
func (g Genre) ItemType() MediaType { return MediaTypeGenre }

// Playlist represents a user playlist
type Playlist struct {
	URI        string        `json:"uri"`
	Name       string        `json:"name"`
	TrackCount int           `json:"track_count,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	CreatedAt  time.Time     `json:"created_at,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at,omitempty"`
}

func (p Playlist) ItemURI() string     { return p.URI }
func (p Playlist) ItemTitle() string   { return p.Name }
func (p Playlist) ItemType() MediaType { return MediaTypePlaylist }

// AlbumDetail is an album together with its tracks, in track order
type AlbumDetail struct {
	Album  Album
	Tracks []Audio
}

// ArtistWorks groups an artist's own albums and the albums they appear on
type ArtistWorks struct {
	Artist      Artist
	Albums      []Album
	Appearances []Album
}

// GenreContent groups the albums and tracks tagged with a genre
type GenreContent struct {
	Genre  Genre
	Albums []Album
	Audios []Audio
}

// PlaylistDetail is a playlist together with its tracks, in playlist order
type PlaylistDetail struct {
	Playlist Playlist
	Tracks   []Audio
}

// PlaylistStatus reports, for one playlist, whether a given audio is a member.
// Used to render add/remove-from-playlist toggles.
type PlaylistStatus struct {
	Playlist      Playlist
	ContainsAudio bool
}

// ActivityTab is a named shelf of personalized content (recently added,
// most played, ...). Remote backends that have no such concept return an
// empty success rather than an error.
type ActivityTab struct {
	ID    string
	Title string
	Items []Item
}
