package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/supermarket/internal/domain"
	"github.com/Skotchmaster/supermarket/internal/models"
	"github.com/Skotchmaster/supermarket/internal/mykafka"
	"github.com/Skotchmaster/supermarket/internal/repo"
	"github.com/Skotchmaster/supermarket/internal/service/search"
	"github.com/Skotchmaster/supermarket/internal/util"
	"github.com/Skotchmaster/supermarket/pkg/logging"
)

const (
	CategoryProduce = "Produce"
	trendingLimit   = 10
)

// Labels the storefront has used for fresh produce over time.
var produceAliases = []string{"Produce", "Fruits & Vegs", "Fruits and Vegetables", "Fruits & Vegetables"}

// Products stocked before categories existed.
var legacyProduceNames = []string{"Apples", "Bananas", "Tomatoes", "Broccoli"}

type CatalogService struct {
	Repo   *repo.GormRepo
	Index  search.Index
	Events mykafka.Publisher
}

type ListQuery struct {
	Search   string
	Category string
	Featured bool
	Trending bool
	Page     int
	Size     int
}

type Listing struct {
	Products []models.Product `json:"products"`
	Trending []models.Product `json:"trending"`
	Meta     util.Meta        `json:"meta"`
}

type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Quantity      int
	Category      string
	Image         string
	Featured      bool
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("Product name is required.")
	}
	if in.Price.IsNegative() {
		return domain.Invalid("Price cannot be negative.")
	}
	if in.DiscountPrice != nil && in.DiscountPrice.IsNegative() {
		return domain.Invalid("Discount price cannot be negative.")
	}
	if in.Quantity < 0 {
		return domain.Invalid("Quantity cannot be negative.")
	}
	return nil
}

func (q ListQuery) filter() repo.ProductFilter {
	f := repo.ProductFilter{
		Search:       q.Search,
		FeaturedOnly: q.Featured || q.Trending,
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		if isProduce(c) {
			f.Categories = produceAliases
			f.LegacyNames = legacyProduceNames
		} else {
			f.Categories = []string{c}
		}
	}
	return f
}

func isProduce(c string) bool {
	for _, a := range produceAliases {
		if strings.EqualFold(a, c) {
			return true
		}
	}
	return false
}

// List pages through the catalog. Outside trending mode the featured
// products matching the same filter are returned alongside.
func (s *CatalogService) List(ctx context.Context, q ListQuery) (*Listing, error) {
	f := q.filter()
	offset, size := util.Calculate(q.Page, q.Size)

	products, total, err := s.Repo.ListProducts(ctx, f, size, offset)
	if err != nil {
		return nil, domain.Persistence("list products", err)
	}
	meta := util.NewMeta(q.Page, size, total)
	if meta.Offset() != offset {
		if products, _, err = s.Repo.ListProducts(ctx, f, size, meta.Offset()); err != nil {
			return nil, domain.Persistence("list products", err)
		}
	}

	out := &Listing{Products: products, Meta: meta}
	if !q.Trending {
		tf := f
		tf.FeaturedOnly = true
		if out.Trending, _, err = s.Repo.ListProducts(ctx, tf, trendingLimit, 0); err != nil {
			return nil, domain.Persistence("list trending", err)
		}
	}
	return out, nil
}

// Search asks the full-text index first and falls back to a LIKE query when
// no index is configured or it fails.
func (s *CatalogService) Search(ctx context.Context, query string, page, size int) (*util.Page[models.Product], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.Invalid("Search query is required.")
	}
	offset, size := util.Calculate(page, size)

	if s.Index != nil {
		ids, total, err := s.Index.Search(ctx, query, offset, size)
		if err == nil {
			found, err := s.Repo.ProductsByIDs(ctx, ids)
			if err != nil {
				return nil, domain.Persistence("load search hits", err)
			}
			return &util.Page[models.Product]{Data: orderByIDs(found, ids), Meta: util.NewMeta(page, size, total)}, nil
		}
		logging.FromContext(ctx).Warn("search_index_failed", "svc", "catalog", "error", err)
	}

	items, total, err := s.Repo.ListProducts(ctx, repo.ProductFilter{Search: query}, size, offset)
	if err != nil {
		return nil, domain.Persistence("search products", err)
	}
	return &util.Page[models.Product]{Data: items, Meta: util.NewMeta(page, size, total)}, nil
}

func orderByIDs(items []models.Product, ids []uint) []models.Product {
	byID := make(map[uint]models.Product, len(items))
	for _, p := range items {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, domain.ProductNotFound(id)
		}
		return nil, domain.Persistence("load product", err)
	}
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		Quantity:      in.Quantity,
		Category:      strings.TrimSpace(in.Category),
		Image:         in.Image,
		Featured:      in.Featured,
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, domain.Persistence("create product", err)
	}

	s.reindex(ctx, p)
	mykafka.Emit(ctx, s.Events, mykafka.TopicProduct, mykafka.EventProductCreated, userKeyID(p.ID),
		mykafka.ProductPayload{ProductID: p.ID, Name: p.Name, Quantity: p.Quantity})
	return p, nil
}

// Update changes the descriptive fields of a product. Stock levels are not
// editable here; they move through Restock.
func (s *CatalogService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &models.Product{
		ID:            id,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		Category:      strings.TrimSpace(in.Category),
		Image:         in.Image,
		Featured:      in.Featured,
	}
	if err := s.Repo.UpdateProductDetails(ctx, p); err != nil {
		if repo.IsNotFound(err) {
			return nil, domain.ProductNotFound(id)
		}
		return nil, domain.Persistence("update product", err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, updated)
	mykafka.Emit(ctx, s.Events, mykafka.TopicProduct, mykafka.EventProductUpdated, userKeyID(id),
		mykafka.ProductPayload{ProductID: id, Name: updated.Name, Quantity: updated.Quantity})
	return updated, nil
}

func (s *CatalogService) SetFeatured(ctx context.Context, id uint, featured bool) error {
	if err := s.Repo.SetFeatured(ctx, id, featured); err != nil {
		if repo.IsNotFound(err) {
			return domain.ProductNotFound(id)
		}
		return domain.Persistence("feature product", err)
	}
	return nil
}

func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if repo.IsNotFound(err) {
			return domain.ProductNotFound(id)
		}
		return domain.Persistence("delete product", err)
	}

	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_unindex_failed", "svc", "catalog", "product_id", id, "error", err)
		}
	}
	mykafka.Emit(ctx, s.Events, mykafka.TopicProduct, mykafka.EventProductDeleted, userKeyID(id),
		mykafka.ProductPayload{ProductID: id})
	return nil
}

// Restock moves a product's quantity by delta through the stock ledger, so
// an admin correction can never race a shopper's reservation.
func (s *CatalogService) Restock(ctx context.Context, id uint, delta int) (int, error) {
	if delta == 0 {
		return 0, domain.Invalid("Restock amount must not be zero.")
	}
	qty, err := s.Repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return qty, err
	}
	mykafka.Emit(ctx, s.Events, mykafka.TopicProduct, mykafka.EventProductRestocked, userKeyID(id),
		mykafka.ProductPayload{ProductID: id, Quantity: qty})
	return qty, nil
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Upsert(ctx, *p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "svc", "catalog", "product_id", p.ID, "error", err)
	}
}
