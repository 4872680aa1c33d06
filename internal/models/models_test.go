package models

import (
	"testing"
	"time"
)

func TestCanonicalISRC(t *testing.T) {
	cases := []struct{ in, want string }{
		{"usum71703861", "USUM71703861"},
		{"  USUM71703861  ", "USUM71703861"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := CanonicalISRC(c.in); got != c.want {
			t.Errorf("CanonicalISRC(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStatDateUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 03:00 on the 2nd in UTC+9 is still the 1st in UTC.
	local := time.Date(2026, 3, 2, 3, 0, 0, 0, loc)
	if got := StatDate(local); got != "2026-03-01" {
		t.Errorf("StatDate = %q, want 2026-03-01", got)
	}
}

func TestEligible(t *testing.T) {
	if (Track{ISRC: " "}).Eligible() {
		t.Error("blank isrc should not be eligible")
	}
	if !(Track{ISRC: "USUM71703861"}).Eligible() {
		t.Error("isrc-bearing track should be eligible")
	}
}

func TestParseProvider(t *testing.T) {
	if p, ok := ParseProvider("Spotify"); !ok || p != ProviderSpotify {
		t.Errorf("ParseProvider(Spotify) = %v, %v", p, ok)
	}
	if _, ok := ParseProvider("deezer"); ok {
		t.Error("deezer should not parse")
	}
}

func TestPlatformIDsAccessor(t *testing.T) {
	ids := PlatformIDs{SpotifyID: "s", AppleID: "a", YouTubeID: "y"}
	if ids.ID(ProviderSpotify) != "s" || ids.ID(ProviderApple) != "a" || ids.ID(ProviderYouTube) != "y" {
		t.Errorf("accessor mismatch: %+v", ids)
	}
	if ids.ID(Provider("deezer")) != "" {
		t.Error("unknown provider should yield empty id")
	}
}
