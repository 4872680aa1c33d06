package youtube

import "testing"

func TestSearchQuery(t *testing.T) {
	cases := []struct {
		title, artist, want string
	}{
		{"HUMBLE.", "Kendrick Lamar", "HUMBLE. Kendrick Lamar"},
		{"Song (Official Video)", "Artist", "Song Artist"},
		{"Song [Official Audio]", "Artist", "Song Artist"},
		{"Song feat. Guest", "Artist", "Song ft. Guest Artist"},
		{"  Song   Name  ", "Artist", "Song Name Artist"},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := SearchQuery(c.title, c.artist); got != c.want {
			t.Errorf("SearchQuery(%q, %q) = %q, want %q", c.title, c.artist, got, c.want)
		}
	}
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{" dQw4w9WgXcQ ", "dQw4w9WgXcQ", true},
		{"not a video", "", false},
		{"", "", false},
		{"https://example.com/watch?v=nope", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractVideoID(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ExtractVideoID(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}
