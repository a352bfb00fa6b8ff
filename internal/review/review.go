package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage"
)

var ErrInvalidReview = errors.New("invalid review")

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Author    string    `json:"author"`
	Date      time.Time `json:"date"`
}

type Summary struct {
	Average float64 `json:"average"`
	Rounded int     `json:"rounded"`
	Count   int     `json:"count"`
}

// Summarize averages the ratings. Rounded falls back to the top rating when there
// are no reviews yet.
func Summarize(reviews []Review) Summary {
	if len(reviews) == 0 {
		return Summary{Rounded: MaxRating}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return Summary{Average: avg, Rounded: int(math.Round(avg)), Count: len(reviews)}
}

// Store keeps one append-only collection per product.
type Store struct {
	docs  storage.Store
	now   func() time.Time
	newID func() string
}

func NewStore(docs storage.Store) *Store {
	return &Store{docs: docs, now: time.Now, newID: uuid.NewString}
}

func collection(productID string) string {
	return "reviews_" + productID
}

func (s *Store) Add(ctx context.Context, r Review) (Review, error) {
	r.Comment = strings.TrimSpace(r.Comment)
	r.Author = strings.TrimSpace(r.Author)
	if r.ProductID == "" {
		return Review{}, fmt.Errorf("%w: product is required", ErrInvalidReview)
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return Review{}, fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidReview, MinRating, MaxRating)
	}
	if r.Comment == "" {
		return Review{}, fmt.Errorf("%w: comment is required", ErrInvalidReview)
	}
	if r.Author == "" {
		r.Author = "Anonymous"
	}
	r.ID = s.newID()
	r.Date = s.now().UTC()

	rec, err := storage.Encode(r.ID, r)
	if err != nil {
		return Review{}, err
	}
	if err := s.docs.PutFirst(ctx, collection(r.ProductID), rec); err != nil {
		return Review{}, fmt.Errorf("add review: %w", err)
	}
	return r, nil
}

// List returns the product's reviews, newest first.
func (s *Store) List(ctx context.Context, productID string) ([]Review, error) {
	recs, err := s.docs.Get(ctx, collection(productID))
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	return storage.Decode[Review](recs)
}
