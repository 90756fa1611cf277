package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/table-reservation/internal/model"
)

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func TestRatingAggregateTracksMean(t *testing.T) {
	var s model.Store
	var ratings []int

	add := func(r int) {
		RatingOnCreate(&s, r)
		ratings = append(ratings, r)
	}
	add(5)
	add(3)
	add(4)
	assert.Equal(t, 3, s.Reviews)
	assert.InDelta(t, mean(ratings), s.Rating, 1e-9)

	RatingOnUpdate(&s, 3, 1)
	ratings[1] = 1
	assert.InDelta(t, mean(ratings), s.Rating, 1e-9)

	RatingOnDelete(&s, 5)
	ratings = ratings[1:]
	assert.Equal(t, 2, s.Reviews)
	assert.InDelta(t, mean(ratings), s.Rating, 1e-9)

	RatingOnDelete(&s, 1)
	RatingOnDelete(&s, 4)
	assert.Equal(t, 0, s.Reviews)
	assert.Equal(t, 0.0, s.Rating)
}

func TestRatingOnUpdateEmptyStore(t *testing.T) {
	s := model.Store{}
	RatingOnUpdate(&s, 3, 5)
	assert.Equal(t, 0.0, s.Rating)
}
