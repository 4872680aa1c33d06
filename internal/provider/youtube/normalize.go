package youtube

import (
	"regexp"
	"strings"

	kkdai "github.com/kkdai/youtube/v2"
)

var (
	// Noise that uploaders append to video titles and that only hurts
	// search relevance and similarity scoring.
	noiseRegex = regexp.MustCompile(`(?i)\((official video|official audio|audio|video|lyrics|HD|Remastered|Remaster(ed)?)\)|\[(official video|official audio|audio|video|lyrics|HD|Remastered|Remaster(ed)?)\]`)
	featRegex  = regexp.MustCompile(`(?i)\bfeat\b\.?`)
	spaceRegex = regexp.MustCompile(`\s{2,}`)

	videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// SearchQuery builds the "<title> <artist>" search string, stripping the
// usual video-title noise. Returns "" when there is nothing to search with.
func SearchQuery(title, artist string) string {
	q := strings.TrimSpace(title + " " + artist)
	q = noiseRegex.ReplaceAllString(q, "")
	q = featRegex.ReplaceAllString(q, "ft.")
	q = spaceRegex.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

// ExtractVideoID accepts a bare 11-character video id or any canonical
// YouTube URL shape (watch?v=, youtu.be/, embed/, shorts/) and returns the
// id. Invalid inputs are rejected here, not by the pipeline.
func ExtractVideoID(input string) (string, bool) {
	s := strings.TrimSpace(input)
	if videoIDRegex.MatchString(s) {
		return s, true
	}
	id, err := kkdai.ExtractVideoID(s)
	if err != nil || !videoIDRegex.MatchString(id) {
		return "", false
	}
	return id, true
}

func validVideoID(id string) bool {
	return videoIDRegex.MatchString(id)
}
