package feedback

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		rating float64
		want   Classification
	}{
		{5.0, Positive},
		{4.5, Positive},
		{4.0, Positive},
		{3.9, Neutral},
		{3.0, Neutral},
		{2.1, Neutral},
		{2.0, Negative},
		{1.0, Negative},
	}
	for _, tt := range tests {
		if got := Classify(tt.rating); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.rating, got, tt.want)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Classify(4.0); got != Positive {
			t.Fatalf("Classify(4.0) = %q on run %d, want positive", got, i)
		}
	}
}

func TestValidateRating(t *testing.T) {
	for _, rating := range []float64{1.0, 2.5, 5.0} {
		if err := ValidateRating(rating); err != nil {
			t.Errorf("ValidateRating(%v) = %v, want nil", rating, err)
		}
	}
	for _, rating := range []float64{0.9, 0, -1, 5.1, 100} {
		err := ValidateRating(rating)
		if !errors.Is(err, ErrInvalidRating) {
			t.Errorf("ValidateRating(%v) = %v, want ErrInvalidRating", rating, err)
		}
	}
}
