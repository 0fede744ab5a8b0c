package subsonic

import (
	"testing"
	"time"

	"github.com/medleyfm/medley/internal/domain"
)

func titles(albums []domain.Album) []string {
	out := make([]string, len(albums))
	for i, a := range albums {
		out[i] = a.Title
	}
	return out
}

func TestSortAlbums(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	albums := func() []domain.Album {
		return []domain.Album{
			{Title: "Zenith", ArtistName: "Abba", CreatedAt: base.Add(2 * time.Hour), PlayCount: 1},
			{Title: "apex", ArtistName: "Beck", CreatedAt: base, PlayCount: 9},
			{Title: "Middle", ArtistName: "Cher", CreatedAt: base.Add(time.Hour), PlayCount: 5},
		}
	}

	tests := []struct {
		name string
		rule domain.SortingRule
		want []string
	}{
		{"by name folds case", domain.SortingRule{Strategy: domain.SortByName}, []string{"apex", "Middle", "Zenith"}},
		{"by name reversed", domain.SortingRule{Strategy: domain.SortByName, Reverse: true}, []string{"Zenith", "Middle", "apex"}},
		{"by artist", domain.SortingRule{Strategy: domain.SortByArtistName}, []string{"Zenith", "apex", "Middle"}},
		{"by creation", domain.SortingRule{Strategy: domain.SortByCreationDate}, []string{"apex", "Middle", "Zenith"}},
		{"by creation reversed", domain.SortingRule{Strategy: domain.SortByCreationDate, Reverse: true}, []string{"Zenith", "Middle", "apex"}},
		{"by play count", domain.SortingRule{Strategy: domain.SortByPlayCount}, []string{"Zenith", "Middle", "apex"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := albums()
			sortAlbums(got, test.rule)
			for i, want := range test.want {
				if got[i].Title != want {
					t.Fatalf("order = %v, want %v", titles(got), test.want)
				}
			}
		})
	}
}

func TestSortReverseIsExactInverse(t *testing.T) {
	forward := []domain.Album{
		{Title: "a"}, {Title: "b"}, {Title: "c"},
	}
	backward := []domain.Album{
		{Title: "a"}, {Title: "b"}, {Title: "c"},
	}
	sortAlbums(forward, domain.SortingRule{Strategy: domain.SortByName})
	sortAlbums(backward, domain.SortingRule{Strategy: domain.SortByName, Reverse: true})

	for i := range forward {
		if forward[i].Title != backward[len(backward)-1-i].Title {
			t.Fatalf("reverse order is not the inverse: %v vs %v", titles(forward), titles(backward))
		}
	}
}

func TestSecondsToDuration(t *testing.T) {
	if d := secondsToDuration(245); d != 245*time.Second {
		t.Errorf("secondsToDuration(245) = %v", d)
	}
}
