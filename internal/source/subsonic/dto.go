package subsonic

import "time"

// Wire types for the Subsonic / OpenSubsonic REST API. Every endpoint wraps
// its payload in a "subsonic-response" envelope; transport-level status is
// almost always 200 and real errors arrive as an error element.

type envelope struct {
	Response response `json:"subsonic-response"`
}

type response struct {
	Status        string         `json:"status"`
	Error         *apiError      `json:"error,omitempty"`
	AlbumList2    *albumList2    `json:"albumList2,omitempty"`
	Artists       *artistsID3    `json:"artists,omitempty"`
	Genres        *genreList     `json:"genres,omitempty"`
	Playlists     *playlistList  `json:"playlists,omitempty"`
	Playlist      *playlistFull  `json:"playlist,omitempty"`
	Album         *albumFull     `json:"album,omitempty"`
	Artist        *artistFull    `json:"artist,omitempty"`
	Song          *child         `json:"song,omitempty"`
	SearchResult3 *searchResult3 `json:"searchResult3,omitempty"`
	SongsByGenre  *songsByGenre  `json:"songsByGenre,omitempty"`
}

// Subsonic API error codes
const (
	codeWrongCredentials  = 40
	codeTokenNotSupported = 41
	codeNotFound          = 70
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type albumID3 struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Artist    string    `json:"artist"`
	ArtistID  string    `json:"artistId"`
	SongCount int       `json:"songCount"`
	Duration  int       `json:"duration"`
	PlayCount int       `json:"playCount"`
	Year      int       `json:"year"`
	CoverArt  string    `json:"coverArt"`
	Created   time.Time `json:"created"`
}

type albumList2 struct {
	Album []albumID3 `json:"album"`
}

type artistID3 struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CoverArt   string `json:"coverArt"`
	AlbumCount int    `json:"albumCount"`
}

type artistIndex struct {
	Name   string      `json:"name"`
	Artist []artistID3 `json:"artist"`
}

type artistsID3 struct {
	Index []artistIndex `json:"index"`
}

type genre struct {
	Value      string `json:"value"`
	SongCount  int    `json:"songCount"`
	AlbumCount int    `json:"albumCount"`
}

type genreList struct {
	Genre []genre `json:"genre"`
}

type playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SongCount int       `json:"songCount"`
	Duration  int       `json:"duration"`
	Created   time.Time `json:"created"`
	Changed   time.Time `json:"changed"`
}

type playlistList struct {
	Playlist []playlist `json:"playlist"`
}

type playlistFull struct {
	playlist
	Entry []child `json:"entry"`
}

type albumFull struct {
	albumID3
	Song []child `json:"song"`
}

type artistFull struct {
	artistID3
	Album []albumID3 `json:"album"`
}

// child is the generic track element
type child struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Album       string    `json:"album"`
	AlbumID     string    `json:"albumId"`
	Artist      string    `json:"artist"`
	ArtistID    string    `json:"artistId"`
	Genre       string    `json:"genre"`
	Year        int       `json:"year"`
	Track       int       `json:"track"`
	DiscNumber  int       `json:"discNumber"`
	Duration    int       `json:"duration"`
	PlayCount   int       `json:"playCount"`
	ContentType string    `json:"contentType"`
	CoverArt    string    `json:"coverArt"`
	Created     time.Time `json:"created"`
}

type searchResult3 struct {
	Artist []artistID3 `json:"artist"`
	Album  []albumID3  `json:"album"`
	Song   []child     `json:"song"`
}

type songsByGenre struct {
	Song []child `json:"song"`
}
