package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/domain/repository"
)

// ProductUseCase catálogo de la tienda: lo consultan las terminales al resolver un código
// y lo alimentan con los productos que completan offline.
type ProductUseCase struct {
	repo repository.ProductRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo}
}

// Upsert crea o actualiza. Si el ID no existe pero el barcode ya está registrado,
// se actualiza ese producto (la terminal pudo darle un ID local distinto).
func (uc *ProductUseCase) Upsert(ctx context.Context, in dto.UpsertProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price.IsNegative() || in.Stock < 0 {
		return nil, domain.ErrInvalidInput
	}
	product := &entity.Product{
		ID:          strings.TrimSpace(in.ID),
		Barcode:     strings.TrimSpace(in.Barcode),
		Name:        entity.TruncateName(name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    entity.ParseCategory(in.Category),
		Brand:       in.Brand,
		Supplier:    in.Supplier,
		Image:       in.Image,
		IsExternal:  in.IsExternal,
	}

	if product.Barcode != "" {
		existing, err := uc.repo.GetByBarcode(ctx, product.Barcode)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != product.ID {
			product.ID = existing.ID
		}
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := uc.repo.Upsert(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID; domain.ErrNotFound si no existe.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return toProductResponse(product), nil
}

// GetByBarcode lo usa el resolver de la terminal.
func (uc *ProductUseCase) GetByBarcode(ctx context.Context, barcode string) (*dto.ProductResponse, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.repo.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return toProductResponse(product), nil
}

// List lista productos con paginación.
func (uc *ProductUseCase) List(ctx context.Context, limit, offset int) (*dto.ProductListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return toProductList(list, dto.PageResponse{Limit: limit, Offset: offset}), nil
}

// ListByCategory rechaza rubros fuera de la enumeración.
func (uc *ProductUseCase) ListByCategory(ctx context.Context, category string) (*dto.ProductListResponse, error) {
	c := entity.Category(strings.ToLower(strings.TrimSpace(category)))
	if !c.Valid() {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.repo.ListByCategory(ctx, c)
	if err != nil {
		return nil, err
	}
	return toProductList(list, dto.PageResponse{Limit: len(list), Total: len(list)}), nil
}

// Search busca por nombre, marca o código.
func (uc *ProductUseCase) Search(ctx context.Context, query string, limit int) (*dto.ProductListResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return toProductList(list, dto.PageResponse{Limit: limit}), nil
}

// UpdateStock sincronización de inventario desde la terminal.
func (uc *ProductUseCase) UpdateStock(ctx context.Context, id string, in dto.UpdateStockRequest) error {
	if in.Stock < 0 {
		return domain.ErrInvalidInput
	}
	return uc.repo.UpdateStock(ctx, id, in.Stock)
}

func toProductList(list []*entity.Product, page dto.PageResponse) *dto.ProductListResponse {
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{Items: items, Page: page}
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	out := &dto.ProductResponse{
		ID:          p.ID,
		Barcode:     p.Barcode,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    string(p.Category),
		Brand:       p.Brand,
		Supplier:    p.Supplier,
		Image:       p.Image,
		IsExternal:  p.IsExternal,
	}
	if p.LastUpdated > 0 {
		out.UpdatedAt = time.UnixMilli(p.LastUpdated).UTC()
	}
	return out
}
