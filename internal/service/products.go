package service

import (
	"context"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// StockCache overlays cached display quantities onto catalog listings.
type StockCache interface {
	GetStock(ctx context.Context, productID int64) (int, bool, error)
	SyncStock(ctx context.Context, products []models.Product) error
}

// ProductService serves the catalog to terminals. Quantities come from
// the display cache when warm; the database value is authoritative and
// used on a miss.
type ProductService struct {
	store  *store.Store
	cache  StockCache
	logger *zap.Logger
}

// NewProductService creates a new product service. cache may be nil.
func NewProductService(s *store.Store, cache StockCache) *ProductService {
	return &ProductService{
		store:  s,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// ListProducts returns one page of the catalog.
func (ps *ProductService) ListProducts(ctx context.Context, page, pageSize int) (*models.PageResult[models.Product], error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ListProducts")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	result, err := ps.store.ListProducts(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	if ps.cache != nil {
		for i := range result.Items {
			qty, ok, err := ps.cache.GetStock(ctx, result.Items[i].ProductID)
			if err != nil {
				ps.logger.Warn("Stock cache read failed",
					zap.Int64("product_id", result.Items[i].ProductID),
					zap.Error(err))
				break
			}
			if ok {
				result.Items[i].QuantityInStock = qty
			}
		}
	}

	return result, nil
}

// GetProduct returns a single product with the authoritative quantity.
func (ps *ProductService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	return ps.store.GetProductByID(ctx, productID)
}

// WarmStockCache seeds the display cache from the catalog at startup.
func (ps *ProductService) WarmStockCache(ctx context.Context) error {
	if ps.cache == nil {
		return nil
	}

	const batchSize = 500
	page := 1
	total := 0
	for {
		result, err := ps.store.ListProducts(ctx, page, batchSize)
		if err != nil {
			return err
		}
		if len(result.Items) == 0 {
			break
		}
		if err := ps.cache.SyncStock(ctx, result.Items); err != nil {
			return err
		}
		total += len(result.Items)
		if total >= result.TotalCount {
			break
		}
		page++
	}

	ps.logger.Info("Stock cache warmed", zap.Int("products", total))
	return nil
}
