package session

import (
	"math"
	"time"

	"github.com/park285/cheese-arena/internal/domain"
)

// ExpectedScore is the logistic expectation of a against b.
func ExpectedScore(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}

// EloUpdate returns the new ratings. A nil winner scores 0.5 each.
func EloUpdate(white, black int, winner *domain.Color, k int) (int, int) {
	sw, sb := 0.5, 0.5
	if winner != nil {
		if *winner == domain.White {
			sw, sb = 1, 0
		} else {
			sw, sb = 0, 1
		}
	}
	ew := ExpectedScore(white, black)
	eb := ExpectedScore(black, white)
	nw := int(math.Round(float64(white) + float64(k)*(sw-ew)))
	nb := int(math.Round(float64(black) + float64(k)*(sb-eb)))
	return nw, nb
}

// applyResult updates both profiles and stamps the ratings onto rec.
func applyResult(rec *domain.MatchRecord, white, black *domain.Profile, k int, now time.Time) {
	rec.WhiteRatingBefore, rec.BlackRatingBefore = white.Rating, black.Rating
	white.Rating, black.Rating = EloUpdate(white.Rating, black.Rating, rec.Winner, k)
	rec.WhiteRatingAfter, rec.BlackRatingAfter = white.Rating, black.Rating

	white.GamesPlayed++
	black.GamesPlayed++
	switch {
	case rec.Winner == nil:
		white.Draws++
		black.Draws++
	case *rec.Winner == domain.White:
		white.Wins++
		black.Losses++
	default:
		black.Wins++
		white.Losses++
	}
	white.UpdatedAt, black.UpdatedAt = now, now
}
