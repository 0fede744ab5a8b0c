package jellyfin

import "time"

// Wire types for the Jellyfin REST API. Field names follow the server's
// PascalCase JSON convention.

type authenticateUser struct {
	Username string `json:"Username"`
	Password string `json:"Pw"`
}

type authenticateUserResult struct {
	AccessToken string `json:"AccessToken"`
	User        struct {
		ID   string `json:"Id"`
		Name string `json:"Name"`
	} `json:"User"`
}

type nameID struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type userData struct {
	PlayCount int `json:"PlayCount"`
}

type item struct {
	ID                string    `json:"Id"`
	Name              string    `json:"Name"`
	Type              string    `json:"Type"`
	AlbumID           string    `json:"AlbumId"`
	Album             string    `json:"Album"`
	AlbumArtist       string    `json:"AlbumArtist"`
	ArtistItems       []nameID  `json:"ArtistItems"`
	AlbumArtists      []nameID  `json:"AlbumArtists"`
	Genres            []string  `json:"Genres"`
	ProductionYear    int       `json:"ProductionYear"`
	IndexNumber       int       `json:"IndexNumber"`
	ParentIndexNumber int       `json:"ParentIndexNumber"`
	RunTimeTicks      int64     `json:"RunTimeTicks"`
	ChildCount        int       `json:"ChildCount"`
	DateCreated       time.Time `json:"DateCreated"`
	DateLastMediaAdd  time.Time `json:"DateLastMediaAdded"`
	UserData          *userData `json:"UserData"`
}

type queryResult struct {
	Items            []item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

type playlistItems struct {
	ItemIDs []string `json:"ItemIds"`
}

type createPlaylist struct {
	Name     string   `json:"Name"`
	IDs      []string `json:"Ids"`
	Users    []string `json:"Users"`
	IsPublic bool     `json:"IsPublic"`
}

type createPlaylistResult struct {
	ID string `json:"Id"`
}

type updatePlaylist struct {
	Name string `json:"Name"`
}
