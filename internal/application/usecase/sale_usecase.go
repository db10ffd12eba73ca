package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nordia-pos/internal/application/dto"
	"github.com/jhoicas/nordia-pos/internal/domain"
	"github.com/jhoicas/nordia-pos/internal/domain/entity"
	"github.com/jhoicas/nordia-pos/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con repos atados a ella.
type TxRunner interface {
	Run(ctx context.Context, fn func(productRepo repository.ProductRepository, saleRepo repository.SaleRepository) error) error
}

// SaleEvents destino de eventos de venta (NATS o nop).
type SaleEvents interface {
	SaleCreated(ctx context.Context, sale *entity.SaleRecord) error
}

// SaleObserver métricas de ventas recibidas.
type SaleObserver interface {
	ObserveSaleReceived(result string)
}

type nopSaleObserver struct{}

func (nopSaleObserver) ObserveSaleReceived(string) {}

// SaleUseCase registro y consulta de ventas enviadas por las terminales.
type SaleUseCase struct {
	tx     TxRunner
	sales  repository.SaleRepository
	events SaleEvents
	obs    SaleObserver
	now    func() time.Time
	loc    *time.Location
	log    zerolog.Logger
}

// SaleOptions dependencias opcionales.
type SaleOptions struct {
	Events   SaleEvents
	Observer SaleObserver
	Now      func() time.Time
	// Location define el "hoy" de las analíticas; por defecto time.Local.
	Location *time.Location
	Logger   zerolog.Logger
}

// NewSaleUseCase construye el caso de uso.
func NewSaleUseCase(tx TxRunner, sales repository.SaleRepository, opts SaleOptions) *SaleUseCase {
	uc := &SaleUseCase{
		tx:     tx,
		sales:  sales,
		events: opts.Events,
		obs:    opts.Observer,
		now:    opts.Now,
		loc:    opts.Location,
		log:    opts.Logger.With().Str("component", "sales").Logger(),
	}
	if uc.obs == nil {
		uc.obs = nopSaleObserver{}
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	if uc.loc == nil {
		uc.loc = time.Local
	}
	return uc
}

// Register valida y persiste la venta. Es idempotente por ID: reenviar una venta ya
// registrada devuelve la original con Duplicate=true. terminalID (del token) completa
// el campo si la terminal no lo envió.
func (uc *SaleUseCase) Register(ctx context.Context, terminalID string, in dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	sale := toSaleRecord(in, uc.now())
	if sale.TerminalID == "" {
		sale.TerminalID = terminalID
	}
	if err := sale.Validate(); err != nil {
		uc.obs.ObserveSaleReceived("rejected")
		return nil, err
	}

	err := uc.tx.Run(ctx, func(_ repository.ProductRepository, saleRepo repository.SaleRepository) error {
		return saleRepo.Create(ctx, sale)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		existing, gerr := uc.sales.GetByID(ctx, sale.ID)
		if gerr != nil {
			return nil, gerr
		}
		if existing == nil {
			return nil, err
		}
		uc.obs.ObserveSaleReceived("duplicate")
		uc.log.Info().Str("sale_id", sale.ID).Msg("venta ya registrada, reenvío ignorado")
		resp := toSaleResponse(existing, nil)
		resp.Duplicate = true
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	uc.obs.ObserveSaleReceived("created")
	if uc.events != nil {
		if err := uc.events.SaleCreated(ctx, sale); err != nil {
			uc.log.Warn().Err(err).Str("sale_id", sale.ID).Msg("no se pudo publicar sale.created")
		}
	}
	uc.log.Info().Str("sale_id", sale.ID).Str("terminal_id", sale.TerminalID).
		Str("total", sale.Total.String()).Msg("venta registrada")
	return toSaleResponse(sale, Insights(sale, uc.now().In(uc.loc))), nil
}

// Get venta por ID; domain.ErrNotFound si no existe.
func (uc *SaleUseCase) Get(ctx context.Context, id string) (*entity.SaleRecord, error) {
	sale, err := uc.sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	return sale, nil
}

// GetDetail igual que Get pero en forma de DTO.
func (uc *SaleUseCase) GetDetail(ctx context.Context, id string) (*dto.SaleDetailResponse, error) {
	sale, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := toSaleDetail(sale)
	return &d, nil
}

// List ventas recientes paginadas.
func (uc *SaleUseCase) List(ctx context.Context, limit, offset int) (*dto.SaleListResponse, error) {
	list, err := uc.sales.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SaleDetailResponse, 0, len(list))
	for _, s := range list {
		items = append(items, toSaleDetail(s))
	}
	return &dto.SaleListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}

// TodayAnalytics recaudación, transacciones y ticket promedio del día en curso.
func (uc *SaleUseCase) TodayAnalytics(ctx context.Context) (*dto.TodayAnalyticsResponse, error) {
	now := uc.now().In(uc.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, uc.loc)
	sum, err := uc.sales.SummaryBetween(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	avg := decimal.Zero
	if sum.Transactions > 0 {
		avg = sum.Revenue.Div(decimal.NewFromInt(int64(sum.Transactions))).Round(2)
	}
	return &dto.TodayAnalyticsResponse{
		Date:              from.Format("2006-01-02"),
		TotalRevenue:      sum.Revenue,
		TotalTransactions: sum.Transactions,
		AverageTicket:     avg,
	}, nil
}

// ── Sugerencias ──

var highTicket = decimal.NewFromInt(2000)

type crossSellRule struct {
	contains string
	dto.CrossSellDTO
}

var crossSellRules = []crossSellRule{
	{"Coca Cola", dto.CrossSellDTO{Product: "Papas Lay's 150g", Reason: "Complementa bebidas", Confidence: 0.85}},
	{"Pan", dto.CrossSellDTO{Product: "Manteca La Serenísima", Reason: "Producto complementario", Confidence: 0.78}},
}

// Insights sugerencias de venta cruzada, alerta por ticket alto y franja pico (12-14, 18-20).
func Insights(sale *entity.SaleRecord, now time.Time) *dto.SaleInsightsDTO {
	out := &dto.SaleInsightsDTO{
		CrossSelling:    []dto.CrossSellDTO{},
		InventoryAlerts: []dto.InventoryAlertDTO{},
	}
	for _, rule := range crossSellRules {
		for _, it := range sale.Items {
			if strings.Contains(it.ProductName, rule.contains) {
				out.CrossSelling = append(out.CrossSelling, rule.CrossSellDTO)
				break
			}
		}
	}
	if sale.Total.GreaterThan(highTicket) {
		out.InventoryAlerts = append(out.InventoryAlerts, dto.InventoryAlertDTO{
			Message:  "Venta alta detectada - verificar stock",
			Priority: "medium",
		})
	}
	h := now.Hour()
	out.PeakHours = (h >= 12 && h <= 14) || (h >= 18 && h <= 20)
	return out
}

// ── Mapeos ──

func toSaleRecord(in dto.CreateSaleRequest, now time.Time) *entity.SaleRecord {
	sale := &entity.SaleRecord{
		ID:            strings.TrimSpace(in.ID),
		TerminalID:    strings.TrimSpace(in.TerminalID),
		Items:         make([]entity.SaleItem, 0, len(in.Items)),
		Total:         in.Total,
		PaymentMethod: entity.PaymentMethod(in.PaymentMethod),
		CreatedAt:     now,
	}
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		sale.CreatedAt = *in.CreatedAt
	}
	if in.CustomerInfo != nil {
		sale.CustomerInfo = &entity.CustomerInfo{Name: in.CustomerInfo.Name, Phone: in.CustomerInfo.Phone}
	}
	for _, it := range in.Items {
		sale.Items = append(sale.Items, entity.SaleItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return sale
}

func toSaleResponse(s *entity.SaleRecord, insights *dto.SaleInsightsDTO) *dto.SaleResponse {
	return &dto.SaleResponse{
		ID:             s.ID,
		Total:          s.Total,
		ItemsCount:     len(s.Items),
		Timestamp:      s.CreatedAt,
		NeuralInsights: insights,
	}
}

func toSaleDetail(s *entity.SaleRecord) dto.SaleDetailResponse {
	items := make([]dto.SaleItemDTO, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, dto.SaleItemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	var customer *dto.CustomerInfoDTO
	if s.CustomerInfo != nil {
		customer = &dto.CustomerInfoDTO{Name: s.CustomerInfo.Name, Phone: s.CustomerInfo.Phone}
	}
	return dto.SaleDetailResponse{
		ID:            s.ID,
		TerminalID:    s.TerminalID,
		Items:         items,
		Total:         s.Total,
		PaymentMethod: string(s.PaymentMethod),
		CustomerInfo:  customer,
		CreatedAt:     s.CreatedAt,
	}
}
