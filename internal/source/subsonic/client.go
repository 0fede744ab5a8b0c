package subsonic

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medleyfm/medley/internal/domain"
)

const (
	apiVersion = "1.16.1"
	clientName = "medley"

	defaultTimeout = 60 * time.Second
)

// Client is a Subsonic REST API client for one configured provider. Subsonic
// has no session tokens: every request carries credentials, either as a
// salted MD5 token or, when the server predates token auth, as the legacy
// cleartext password parameter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	username      string
	password      string
	useLegacyAuth bool
}

// NewClient creates a Subsonic API client
func NewClient(baseURL, username, password string, useLegacyAuth bool, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
		username:      username,
		password:      password,
		useLegacyAuth: useLegacyAuth,
	}
}

// authParams fills in the common request parameters. Token mode salts the
// password with a fresh nonce per request.
func (c *Client) authParams(query url.Values) {
	query.Set("u", c.username)
	query.Set("v", apiVersion)
	query.Set("c", clientName)
	query.Set("f", "json")

	if c.useLegacyAuth {
		query.Set("p", c.password)
		return
	}

	salt := newSalt()
	token := md5.Sum([]byte(c.password + salt))
	query.Set("t", hex.EncodeToString(token[:]))
	query.Set("s", salt)
}

func newSalt() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to a
		// time-derived salt rather than panicking mid-request
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// doRequest performs one API call and unwraps the subsonic-response
// envelope, translating transport failures and API error codes into
// MediaError kinds.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values) (response, error) {
	if query == nil {
		query = url.Values{}
	}
	c.authParams(query)

	reqURL := c.baseURL + "/rest/" + endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("subsonic request", "endpoint", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return response{}, fmt.Errorf("%w: %s", domain.ErrCancelled, err)
		}
		return response{}, fmt.Errorf("%w: %s", domain.ErrIO, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("%w: %s", domain.ErrIO, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return response{}, domain.ErrAuthenticationRequired
	case resp.StatusCode == http.StatusForbidden:
		return response{}, domain.ErrInvalidCredentials
	case resp.StatusCode == http.StatusNotFound:
		return response{}, domain.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("subsonic request error", "status", resp.StatusCode, "endpoint", endpoint)
		return response{}, fmt.Errorf("%w: unexpected status %d", domain.ErrIO, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return response{}, fmt.Errorf("%w: %s", domain.ErrDeserialization, err)
	}

	if env.Response.Status != "ok" {
		return response{}, mapAPIError(env.Response.Error)
	}
	return env.Response, nil
}

// mapAPIError translates Subsonic's in-band error element. Servers report
// failures with HTTP 200 and a numeric code.
func mapAPIError(apiErr *apiError) error {
	if apiErr == nil {
		return fmt.Errorf("%w: server reported failure without error detail", domain.ErrIO)
	}
	switch apiErr.Code {
	case codeWrongCredentials:
		return fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, apiErr.Message)
	case codeTokenNotSupported:
		return fmt.Errorf("%w: %s", domain.ErrAuthenticationRequired, apiErr.Message)
	case codeNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, apiErr.Message)
	default:
		return fmt.Errorf("%w: subsonic error %d: %s", domain.ErrIO, apiErr.Code, apiErr.Message)
	}
}

// Ping verifies connectivity and credentials
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, "ping", nil)
	return err
}

// GetAlbums returns up to size albums in the given native list order
func (c *Client) GetAlbums(ctx context.Context, listType string, size int) ([]albumID3, error) {
	query := url.Values{}
	query.Set("type", listType)
	query.Set("size", fmt.Sprintf("%d", size))

	resp, err := c.doRequest(ctx, "getAlbumList2", query)
	if err != nil {
		return nil, err
	}
	if resp.AlbumList2 == nil {
		return nil, nil
	}
	return resp.AlbumList2.Album, nil
}

// GetArtists returns all artists, flattened from the index groups
func (c *Client) GetArtists(ctx context.Context) ([]artistID3, error) {
	resp, err := c.doRequest(ctx, "getArtists", nil)
	if err != nil {
		return nil, err
	}
	if resp.Artists == nil {
		return nil, nil
	}
	var artists []artistID3
	for _, index := range resp.Artists.Index {
		artists = append(artists, index.Artist...)
	}
	return artists, nil
}

// GetGenres returns all genres
func (c *Client) GetGenres(ctx context.Context) ([]genre, error) {
	resp, err := c.doRequest(ctx, "getGenres", nil)
	if err != nil {
		return nil, err
	}
	if resp.Genres == nil {
		return nil, nil
	}
	return resp.Genres.Genre, nil
}

// GetPlaylists returns all playlists visible to the user
func (c *Client) GetPlaylists(ctx context.Context) ([]playlist, error) {
	resp, err := c.doRequest(ctx, "getPlaylists", nil)
	if err != nil {
		return nil, err
	}
	if resp.Playlists == nil {
		return nil, nil
	}
	return resp.Playlists.Playlist, nil
}

// GetPlaylist returns one playlist with its entries
func (c *Client) GetPlaylist(ctx context.Context, id string) (playlistFull, error) {
	query := url.Values{}
	query.Set("id", id)

	resp, err := c.doRequest(ctx, "getPlaylist", query)
	if err != nil {
		return playlistFull{}, err
	}
	if resp.Playlist == nil {
		return playlistFull{}, domain.ErrNotFound
	}
	return *resp.Playlist, nil
}

// GetAlbum returns one album with its tracks
func (c *Client) GetAlbum(ctx context.Context, id string) (albumFull, error) {
	query := url.Values{}
	query.Set("id", id)

	resp, err := c.doRequest(ctx, "getAlbum", query)
	if err != nil {
		return albumFull{}, err
	}
	if resp.Album == nil {
		return albumFull{}, domain.ErrNotFound
	}
	return *resp.Album, nil
}

// GetArtist returns one artist with their albums
func (c *Client) GetArtist(ctx context.Context, id string) (artistFull, error) {
	query := url.Values{}
	query.Set("id", id)

	resp, err := c.doRequest(ctx, "getArtist", query)
	if err != nil {
		return artistFull{}, err
	}
	if resp.Artist == nil {
		return artistFull{}, domain.ErrNotFound
	}
	return *resp.Artist, nil
}

// GetSong returns one track
func (c *Client) GetSong(ctx context.Context, id string) (child, error) {
	query := url.Values{}
	query.Set("id", id)

	resp, err := c.doRequest(ctx, "getSong", query)
	if err != nil {
		return child{}, err
	}
	if resp.Song == nil {
		return child{}, domain.ErrNotFound
	}
	return *resp.Song, nil
}

// GetSongsByGenre returns up to count tracks tagged with the genre name
func (c *Client) GetSongsByGenre(ctx context.Context, name string, count int) ([]child, error) {
	query := url.Values{}
	query.Set("genre", name)
	query.Set("count", fmt.Sprintf("%d", count))

	resp, err := c.doRequest(ctx, "getSongsByGenre", query)
	if err != nil {
		return nil, err
	}
	if resp.SongsByGenre == nil {
		return nil, nil
	}
	return resp.SongsByGenre.Song, nil
}

// Search runs a search3 query across artists, albums and songs
func (c *Client) Search(ctx context.Context, searchTerm string) (searchResult3, error) {
	query := url.Values{}
	query.Set("query", searchTerm)

	resp, err := c.doRequest(ctx, "search3", query)
	if err != nil {
		return searchResult3{}, err
	}
	if resp.SearchResult3 == nil {
		return searchResult3{}, nil
	}
	return *resp.SearchResult3, nil
}

// GetAudioPlaybackURL builds the direct stream URL for a track, credentials
// included, since Subsonic authenticates streams per request too
func (c *Client) GetAudioPlaybackURL(id string) string {
	query := url.Values{}
	query.Set("id", id)
	c.authParams(query)
	return c.baseURL + "/rest/stream?" + query.Encode()
}

// GetCoverArtURL builds the cover art URL for an item
func (c *Client) GetCoverArtURL(id string) string {
	if id == "" {
		return ""
	}
	query := url.Values{}
	query.Set("id", id)
	c.authParams(query)
	return c.baseURL + "/rest/getCoverArt?" + query.Encode()
}

// CreatePlaylist creates a playlist and returns its server-assigned ID.
// Subsonic returns the created playlist when asked in json format.
func (c *Client) CreatePlaylist(ctx context.Context, name string) (string, error) {
	query := url.Values{}
	query.Set("name", name)

	resp, err := c.doRequest(ctx, "createPlaylist", query)
	if err != nil {
		return "", err
	}
	if resp.Playlist == nil {
		return "", fmt.Errorf("%w: server did not return created playlist", domain.ErrDeserialization)
	}
	return resp.Playlist.ID, nil
}

// RenamePlaylist renames a playlist
func (c *Client) RenamePlaylist(ctx context.Context, id, name string) error {
	query := url.Values{}
	query.Set("playlistId", id)
	query.Set("name", name)

	_, err := c.doRequest(ctx, "updatePlaylist", query)
	return err
}

// DeletePlaylist deletes a playlist
func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", id)

	_, err := c.doRequest(ctx, "deletePlaylist", query)
	return err
}

// AddSongToPlaylist appends a track to a playlist
func (c *Client) AddSongToPlaylist(ctx context.Context, id, songID string) error {
	query := url.Values{}
	query.Set("playlistId", id)
	query.Set("songIdToAdd", songID)

	_, err := c.doRequest(ctx, "updatePlaylist", query)
	return err
}

// RemoveSongFromPlaylist removes a track by its playlist position, which is
// the removal handle updatePlaylist understands
func (c *Client) RemoveSongFromPlaylist(ctx context.Context, id string, index int) error {
	query := url.Values{}
	query.Set("playlistId", id)
	query.Set("songIndexToRemove", fmt.Sprintf("%d", index))

	_, err := c.doRequest(ctx, "updatePlaylist", query)
	return err
}
