package service

import "github.com/iliyamo/table-reservation/internal/model"

// The rating aggregate is updated incrementally.  Callers hold the store row
// lock for the whole read-modify-write.

// RatingOnCreate folds a new review rating into s.
func RatingOnCreate(s *model.Store, rating int) {
	total := s.Rating * float64(s.Reviews)
	s.Reviews++
	s.Rating = (total + float64(rating)) / float64(s.Reviews)
}

// RatingOnUpdate replaces old with updated in s.  The count is unchanged.
func RatingOnUpdate(s *model.Store, old, updated int) {
	if s.Reviews <= 0 {
		return
	}
	total := s.Rating*float64(s.Reviews) - float64(old) + float64(updated)
	s.Rating = total / float64(s.Reviews)
}

// RatingOnDelete removes old from s.  An empty store reports exactly 0.
func RatingOnDelete(s *model.Store, old int) {
	orig := s.Reviews
	s.Reviews--
	if s.Reviews <= 0 {
		s.Reviews = 0
		s.Rating = 0
		return
	}
	s.Rating = (s.Rating*float64(orig) - float64(old)) / float64(s.Reviews)
}
