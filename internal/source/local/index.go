package local

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/medleyfm/medley/internal/domain"
)

// Index is the SQLite-backed catalog of on-device media. It holds the
// scanned metadata rows; playlists live in the key-value store because they
// reference tracks by URI, not by row.
type Index struct {
	db *sql.DB
}

// OpenIndex opens the media index database, creating the schema if needed
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

// Close closes the underlying database
func (x *Index) Close() error {
	return x.db.Close()
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS artists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT,
			updated_at TEXT,
			play_count INTEGER DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS albums (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist_id TEXT,
			artist_name TEXT,
			year INTEGER,
			created_at TEXT,
			updated_at TEXT,
			play_count INTEGER DEFAULT 0,
			FOREIGN KEY (artist_id) REFERENCES artists(id)
		);

		CREATE TABLE IF NOT EXISTS audios (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			album_id TEXT,
			artist_id TEXT,
			genre TEXT,
			year INTEGER,
			track_number INTEGER,
			disc_number INTEGER,
			duration_seconds INTEGER,
			mime_type TEXT,
			created_at TEXT,
			updated_at TEXT,
			play_count INTEGER DEFAULT 0,
			last_played_at TEXT,
			FOREIGN KEY (album_id) REFERENCES albums(id),
			FOREIGN KEY (artist_id) REFERENCES artists(id)
		);

		CREATE INDEX IF NOT EXISTS idx_audios_album ON audios(album_id);
		CREATE INDEX IF NOT EXISTS idx_audios_artist ON audios(artist_id);
		CREATE INDEX IF NOT EXISTS idx_audios_genre ON audios(genre);
		CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist_id);
	`)
	return err
}

// ArtistRow is one indexed artist
type ArtistRow struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	PlayCount int
}

// AlbumRow is one indexed album
type AlbumRow struct {
	ID         string
	Title      string
	ArtistID   string
	ArtistName string
	Year       int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	PlayCount  int
}

// AudioRow is one indexed track
type AudioRow struct {
	ID          string
	Path        string
	Title       string
	AlbumID     string
	ArtistID    string
	Genre       string
	Year        int
	TrackNumber int
	DiscNumber  int
	Duration    time.Duration
	MimeType    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PlayCount   int
}

// AddArtist inserts an artist row
func (x *Index) AddArtist(ctx context.Context, row ArtistRow) error {
	_, err := x.db.ExecContext(ctx, `
		INSERT INTO artists (id, name, created_at, updated_at, play_count)
		VALUES (?, ?, ?, ?, ?)
	`, row.ID, row.Name, row.CreatedAt.Format(time.RFC3339), row.UpdatedAt.Format(time.RFC3339), row.PlayCount)
	return err
}

// AddAlbum inserts an album row
func (x *Index) AddAlbum(ctx context.Context, row AlbumRow) error {
	_, err := x.db.ExecContext(ctx, `
		INSERT INTO albums (id, title, artist_id, artist_name, year, created_at, updated_at, play_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.Title, row.ArtistID, row.ArtistName, row.Year,
		row.CreatedAt.Format(time.RFC3339), row.UpdatedAt.Format(time.RFC3339), row.PlayCount)
	return err
}

// AddAudio inserts a track row
func (x *Index) AddAudio(ctx context.Context, row AudioRow) error {
	_, err := x.db.ExecContext(ctx, `
		INSERT INTO audios (id, path, title, album_id, artist_id, genre, year,
			track_number, disc_number, duration_seconds, mime_type, created_at, updated_at, play_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.Path, row.Title, row.AlbumID, row.ArtistID, row.Genre, row.Year,
		row.TrackNumber, row.DiscNumber, int(row.Duration.Seconds()), row.MimeType,
		row.CreatedAt.Format(time.RFC3339), row.UpdatedAt.Format(time.RFC3339), row.PlayCount)
	return err
}

// MarkAudioPlayed bumps the play counters of a track and its album and artist
func (x *Index) MarkAudioPlayed(ctx context.Context, id string) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE audios SET play_count = play_count + 1, last_played_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE albums SET play_count = play_count + 1
		WHERE id = (SELECT album_id FROM audios WHERE id = ?)
	`, id)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE artists SET play_count = play_count + 1
		WHERE id = (SELECT artist_id FROM audios WHERE id = ?)
	`, id)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// orderClause maps a sorting rule onto the table's columns. nameColumn is
// the per-table display name column and final tie breaker.
func orderClause(rule domain.SortingRule, nameColumn string) string {
	var column string
	switch rule.Strategy {
	case domain.SortByArtistName:
		column = "artist_name COLLATE NOCASE"
	case domain.SortByCreationDate:
		column = "created_at"
	case domain.SortByModificationDate:
		column = "updated_at"
	case domain.SortByPlayCount:
		column = "play_count"
	default:
		column = nameColumn + " COLLATE NOCASE"
	}
	direction := "ASC"
	if rule.Reverse {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s COLLATE NOCASE %s", column, direction, nameColumn, direction)
}

const albumColumns = `id, title, artist_id, artist_name, year, created_at, updated_at, play_count`

func scanAlbum(scan func(dest ...any) error) (AlbumRow, error) {
	var row AlbumRow
	var createdAt, updatedAt string
	var artistID, artistName sql.NullString
	err := scan(&row.ID, &row.Title, &artistID, &artistName, &row.Year, &createdAt, &updatedAt, &row.PlayCount)
	if err != nil {
		return row, err
	}
	row.ArtistID = artistID.String
	row.ArtistName = artistName.String
	row.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	row.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return row, nil
}

// ListAlbums returns all albums in the given order
func (x *Index) ListAlbums(ctx context.Context, rule domain.SortingRule) ([]AlbumRow, error) {
	// albums carry a denormalized artist_name so the artist-name sort
	// needs no join
	rows, err := x.db.QueryContext(ctx, `SELECT `+albumColumns+` FROM albums`+orderClause(rule, "title"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []AlbumRow
	for rows.Next() {
		row, err := scanAlbum(rows.Scan)
		if err != nil {
			return nil, err
		}
		albums = append(albums, row)
	}
	return albums, rows.Err()
}

// GetAlbum reads one album row
func (x *Index) GetAlbum(ctx context.Context, id string) (AlbumRow, error) {
	row, err := scanAlbum(x.db.QueryRowContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return row, domain.ErrNotFound
	}
	return row, err
}

// ListRecentAlbums returns the newest albums, most recent first
func (x *Index) ListRecentAlbums(ctx context.Context, limit int) ([]AlbumRow, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []AlbumRow
	for rows.Next() {
		row, err := scanAlbum(rows.Scan)
		if err != nil {
			return nil, err
		}
		albums = append(albums, row)
	}
	return albums, rows.Err()
}

const artistColumns = `id, name, created_at, updated_at, play_count`

func scanArtist(scan func(dest ...any) error) (ArtistRow, error) {
	var row ArtistRow
	var createdAt, updatedAt string
	err := scan(&row.ID, &row.Name, &createdAt, &updatedAt, &row.PlayCount)
	if err != nil {
		return row, err
	}
	row.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	row.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return row, nil
}

// ListArtists returns all artists in the given order
func (x *Index) ListArtists(ctx context.Context, rule domain.SortingRule) ([]ArtistRow, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT `+artistColumns+` FROM artists`+orderClause(withoutArtistName(rule), "name"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []ArtistRow
	for rows.Next() {
		row, err := scanArtist(rows.Scan)
		if err != nil {
			return nil, err
		}
		artists = append(artists, row)
	}
	return artists, rows.Err()
}

// withoutArtistName degrades the artist-name strategy on tables that have
// no artist_name column
func withoutArtistName(rule domain.SortingRule) domain.SortingRule {
	if rule.Strategy == domain.SortByArtistName {
		rule.Strategy = domain.SortByName
	}
	return rule
}

// GetArtist reads one artist row
func (x *Index) GetArtist(ctx context.Context, id string) (ArtistRow, error) {
	row, err := scanArtist(x.db.QueryRowContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return row, domain.ErrNotFound
	}
	return row, err
}

// ListArtistAlbums returns the albums credited to an artist
func (x *Index) ListArtistAlbums(ctx context.Context, artistID string) ([]AlbumRow, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE artist_id = ? ORDER BY year, title COLLATE NOCASE`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []AlbumRow
	for rows.Next() {
		row, err := scanAlbum(rows.Scan)
		if err != nil {
			return nil, err
		}
		albums = append(albums, row)
	}
	return albums, rows.Err()
}

// ListArtistAppearances returns albums the artist plays on without being
// the credited album artist
func (x *Index) ListArtistAppearances(ctx context.Context, artistID string) ([]AlbumRow, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT DISTINCT a.id, a.title, a.artist_id, a.artist_name, a.year, a.created_at, a.updated_at, a.play_count
		FROM albums a
		JOIN audios t ON t.album_id = a.id
		WHERE t.artist_id = ? AND (a.artist_id IS NULL OR a.artist_id != ?)
		ORDER BY a.year, a.title COLLATE NOCASE
	`, artistID, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []AlbumRow
	for rows.Next() {
		row, err := scanAlbum(rows.Scan)
		if err != nil {
			return nil, err
		}
		albums = append(albums, row)
	}
	return albums, rows.Err()
}

const audioColumns = `id, path, title, album_id, artist_id, genre, year,
	track_number, disc_number, duration_seconds, mime_type, created_at, updated_at, play_count`

func scanAudio(scan func(dest ...any) error) (AudioRow, error) {
	var row AudioRow
	var createdAt, updatedAt string
	var albumID, artistID, genreName, mimeType sql.NullString
	var seconds int
	err := scan(&row.ID, &row.Path, &row.Title, &albumID, &artistID, &genreName, &row.Year,
		&row.TrackNumber, &row.DiscNumber, &seconds, &mimeType, &createdAt, &updatedAt, &row.PlayCount)
	if err != nil {
		return row, err
	}
	row.AlbumID = albumID.String
	row.ArtistID = artistID.String
	row.Genre = genreName.String
	row.MimeType = mimeType.String
	row.Duration = time.Duration(seconds) * time.Second
	row.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	row.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return row, nil
}

func (x *Index) queryAudios(ctx context.Context, query string, args ...any) ([]AudioRow, error) {
	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audios []AudioRow
	for rows.Next() {
		row, err := scanAudio(rows.Scan)
		if err != nil {
			return nil, err
		}
		audios = append(audios, row)
	}
	return audios, rows.Err()
}

// GetAudio reads one track row
func (x *Index) GetAudio(ctx context.Context, id string) (AudioRow, error) {
	row, err := scanAudio(x.db.QueryRowContext(ctx,
		`SELECT `+audioColumns+` FROM audios WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return row, domain.ErrNotFound
	}
	return row, err
}

// ListAlbumTracks returns an album's tracks in disc and track order
func (x *Index) ListAlbumTracks(ctx context.Context, albumID string) ([]AudioRow, error) {
	return x.queryAudios(ctx,
		`SELECT `+audioColumns+` FROM audios WHERE album_id = ? ORDER BY disc_number, track_number, title COLLATE NOCASE`,
		albumID)
}

// ListAudios returns every indexed track, name order
func (x *Index) ListAudios(ctx context.Context) ([]AudioRow, error) {
	return x.queryAudios(ctx, `SELECT `+audioColumns+` FROM audios ORDER BY title COLLATE NOCASE`)
}

// ListMostPlayedAudios returns the most played tracks, highest count first
func (x *Index) ListMostPlayedAudios(ctx context.Context, limit int) ([]AudioRow, error) {
	return x.queryAudios(ctx,
		`SELECT `+audioColumns+` FROM audios WHERE play_count > 0 ORDER BY play_count DESC, title COLLATE NOCASE LIMIT ?`,
		limit)
}

// ListRecentlyPlayedAudios returns played tracks, most recent playback first
func (x *Index) ListRecentlyPlayedAudios(ctx context.Context, limit int) ([]AudioRow, error) {
	return x.queryAudios(ctx,
		`SELECT `+audioColumns+` FROM audios WHERE last_played_at IS NOT NULL ORDER BY last_played_at DESC, title COLLATE NOCASE LIMIT ?`,
		limit)
}

// ListGenres returns the distinct genre names found across tracks
func (x *Index) ListGenres(ctx context.Context, rule domain.SortingRule) ([]string, error) {
	direction := "ASC"
	if rule.Reverse {
		direction = "DESC"
	}
	rows, err := x.db.QueryContext(ctx, `
		SELECT DISTINCT genre FROM audios
		WHERE genre IS NOT NULL AND genre != ''
		ORDER BY genre COLLATE NOCASE `+direction)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		genres = append(genres, name)
	}
	return genres, rows.Err()
}

// GenreExists reports whether any track carries the genre name
func (x *Index) GenreExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := x.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audios WHERE genre = ?`, name).Scan(&count)
	return count > 0, err
}

// ListGenreTracks returns the tracks tagged with a genre name
func (x *Index) ListGenreTracks(ctx context.Context, name string) ([]AudioRow, error) {
	return x.queryAudios(ctx,
		`SELECT `+audioColumns+` FROM audios WHERE genre = ? ORDER BY title COLLATE NOCASE`, name)
}

// ListGenreAlbums returns the albums containing at least one track tagged
// with a genre name
func (x *Index) ListGenreAlbums(ctx context.Context, name string) ([]AlbumRow, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT DISTINCT a.id, a.title, a.artist_id, a.artist_name, a.year, a.created_at, a.updated_at, a.play_count
		FROM albums a
		JOIN audios t ON t.album_id = a.id
		WHERE t.genre = ?
		ORDER BY a.title COLLATE NOCASE
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []AlbumRow
	for rows.Next() {
		row, err := scanAlbum(rows.Scan)
		if err != nil {
			return nil, err
		}
		albums = append(albums, row)
	}
	return albums, rows.Err()
}
