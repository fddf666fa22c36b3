// package match decides whether a target-catalog search result is the same
// song as a source track.
//
// Scoring is a weighted blend of normalized title and artist similarity; the
// scorer is a pure function of its inputs and never touches the network.
package match

import (
	"unicode/utf8"

	"github.com/desertthunder/likeshift/internal/services"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Default tuning. Artist similarity outweighs title similarity: two songs
// sharing a title across artists is common, the reverse is rare.
const (
	DefaultTitleWeight  = 0.4
	DefaultArtistWeight = 0.6
	DefaultThreshold    = 0.72
)

// Config holds the scorer's tunable constants. Values are fixed for the
// lifetime of a scorer so results stay reproducible within a run.
type Config struct {
	TitleWeight  float64
	ArtistWeight float64
	Threshold    float64 // minimum combined score for a match
}

// DefaultConfig returns the documented default weights and threshold.
func DefaultConfig() Config {
	return Config{
		TitleWeight:  DefaultTitleWeight,
		ArtistWeight: DefaultArtistWeight,
		Threshold:    DefaultThreshold,
	}
}

// Reason explains why no candidate was accepted.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoCandidates
	ReasonBelowThreshold
)

func (r Reason) String() string {
	switch r {
	case ReasonNoCandidates:
		return "no_candidates"
	case ReasonBelowThreshold:
		return "no_match"
	default:
		return ""
	}
}

// Result is the outcome of scoring one track against its candidate list.
// Candidate is nil unless Matched reports true.
type Result struct {
	Candidate *services.Candidate
	Score     float64
	Reason    Reason
}

// Matched reports whether an acceptable candidate was selected.
func (r Result) Matched() bool {
	return r.Candidate != nil
}

// Scorer selects the best acceptable candidate for a track.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer with the given config, falling back to defaults
// for unset values.
func NewScorer(config Config) *Scorer {
	if config.TitleWeight <= 0 && config.ArtistWeight <= 0 {
		config.TitleWeight = DefaultTitleWeight
		config.ArtistWeight = DefaultArtistWeight
	}
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	return &Scorer{config: config}
}

// Config returns the scorer's fixed tuning values.
func (s *Scorer) Config() Config {
	return s.config
}

// Match scores each candidate against the track and returns the best
// acceptable one.
//
// Candidates arrive relevance-ranked by the target service; ties on the
// computed score keep the earliest candidate, deferring to that ranking
// rather than re-ordering by any secondary key.
func (s *Scorer) Match(track services.Track, candidates []services.Candidate) Result {
	if len(candidates) == 0 {
		return Result{Reason: ReasonNoCandidates}
	}

	title := Normalize(track.Title)
	artist := Normalize(track.Artist)

	bestIdx := 0
	bestScore := s.score(title, artist, candidates[0])

	for i := 1; i < len(candidates); i++ {
		if score := s.score(title, artist, candidates[i]); score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	if bestScore < s.config.Threshold {
		return Result{Score: bestScore, Reason: ReasonBelowThreshold}
	}

	return Result{Candidate: &candidates[bestIdx], Score: bestScore}
}

func (s *Scorer) score(title, artist string, candidate services.Candidate) float64 {
	titleSim := Similarity(title, Normalize(candidate.Title))
	artistSim := Similarity(artist, Normalize(candidate.Artist))

	total := s.config.TitleWeight + s.config.ArtistWeight
	return (s.config.TitleWeight*titleSim + s.config.ArtistWeight*artistSim) / total
}

// Similarity computes a Levenshtein ratio in [0, 1] between two
// already-normalized strings. 1 means identical, 0 means nothing in common.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	longest := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > longest {
		longest = lb
	}

	dist := fuzzy.LevenshteinDistance(a, b)
	if dist >= longest {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}
