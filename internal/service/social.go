package service

import (
	"context"
	"strings"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/repo"
)

// SocialService covers favorites and reviews.
type SocialService struct {
	Repo *repo.GormRepo
}

type ProductReviews struct {
	Reviews []repo.ReviewView `json:"reviews"`
	Stats   repo.ReviewStats  `json:"stats"`
}

func (s *SocialService) ToggleFavorite(ctx context.Context, userID, productID uint) (bool, error) {
	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		if repo.IsNotFound(err) {
			return false, domain.ProductNotFound(productID)
		}
		return false, domain.Persistence("load product", err)
	}
	on, err := s.Repo.ToggleFavorite(ctx, userID, productID)
	if err != nil {
		return false, domain.Persistence("toggle favorite", err)
	}
	return on, nil
}

func (s *SocialService) Favorites(ctx context.Context, userID uint) ([]models.Product, error) {
	items, err := s.Repo.ListFavoriteProducts(ctx, userID)
	if err != nil {
		return nil, domain.Persistence("list favorites", err)
	}
	return items, nil
}

// FavoriteIDs is used to mark hearts on product listings.
func (s *SocialService) FavoriteIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	items, err := s.Favorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[uint]bool, len(items))
	for _, p := range items {
		ids[p.ID] = true
	}
	return ids, nil
}

type ReviewInput struct {
	Rating  int
	Title   string
	Comment string
}

func (s *SocialService) SaveReview(ctx context.Context, userID, productID uint, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, domain.Invalid("Rating must be between 1 and 5.")
	}
	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		if repo.IsNotFound(err) {
			return nil, domain.ProductNotFound(productID)
		}
		return nil, domain.Persistence("load product", err)
	}

	rv := &models.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    in.Rating,
		Title:     strings.TrimSpace(in.Title),
		Comment:   strings.TrimSpace(in.Comment),
	}
	if err := s.Repo.UpsertReview(ctx, rv); err != nil {
		return nil, domain.Persistence("save review", err)
	}
	return rv, nil
}

func (s *SocialService) Reviews(ctx context.Context, productID uint) (*ProductReviews, error) {
	rows, err := s.Repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, domain.Persistence("list reviews", err)
	}
	stats, err := s.Repo.ReviewStats(ctx, productID)
	if err != nil {
		return nil, domain.Persistence("review stats", err)
	}
	return &ProductReviews{Reviews: rows, Stats: stats}, nil
}
