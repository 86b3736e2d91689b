package service

import (
	"fmt"
	"strings"
	"time"

	"fleetshop/internal/activity"
	"fleetshop/internal/apperr"
	"fleetshop/internal/events"
	"fleetshop/internal/model"
	"fleetshop/internal/numbering"
	"fleetshop/prometheus"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// QuoteService builds quotes, keeps their totals consistent and records client decisions
type QuoteService struct {
	db       *gorm.DB
	log      *zap.Logger
	numbers  *numbering.Generator
	settings *SettingsService
	bus      *events.Bus
}

// NewQuoteService creates a quote service
func NewQuoteService(db *gorm.DB, log *zap.Logger, numbers *numbering.Generator, settings *SettingsService, bus *events.Bus) *QuoteService {
	return &QuoteService{db: db, log: log, numbers: numbers, settings: settings, bus: bus}
}

// CreateQuoteInput opens a draft quote for a job
type CreateQuoteInput struct {
	JobID       uint       `json:"job_id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	ValidUntil  *time.Time `json:"valid_until"`
	Terms       string     `json:"terms"`
}

// CreateQuote opens a draft quote using the tenant's default tax rate
func (s *QuoteService) CreateQuote(actor Actor, in CreateQuoteInput) (*model.Quote, error) {
	if in.JobID == 0 || strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("Job and title are required")
	}

	quote := model.Quote{
		TenantID:    actor.TenantID,
		QuoteNumber: s.numbers.QuoteNumber(),
		JobID:       in.JobID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      model.QuoteStatusDraft,
		Subtotal:    decimal.Zero,
		TaxAmount:   decimal.Zero,
		TotalAmount: decimal.Zero,
		Terms:       in.Terms,
		CreatedBy:   actor.UserID,
	}

	defer prometheus.TrackDBOperation("quote_create")(time.Now())

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var job model.Job
		if err := findInTenant(tx, &job, actor.TenantID, in.JobID, "job"); err != nil {
			return err
		}

		quote.TaxRate = s.settings.TaxRate(tx, actor.TenantID)
		if in.ValidUntil != nil {
			quote.ValidUntil = timePtr(truncateDay(*in.ValidUntil))
		} else {
			quote.ValidUntil = timePtr(today().AddDate(0, 0, s.settings.QuoteValidityDays(tx, actor.TenantID)))
		}

		if err := tx.Create(&quote).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityQuote,
			EntityID:   quote.ID,
			Action:     "created",
			NewValues: map[string]interface{}{
				"quote_number": quote.QuoteNumber,
				"job_id":       quote.JobID,
				"title":        quote.Title,
				"tax_rate":     quote.TaxRate.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Quote created",
		zap.Uint("tenant_id", actor.TenantID),
		zap.Uint("quote_id", quote.ID),
		zap.String("quote_number", quote.QuoteNumber))
	prometheus.RecordDomainOperation(events.EntityQuote, "created")
	publish(s.bus, actor.TenantID, events.EntityQuote, quote.ID, "created")
	return &quote, nil
}

// QuoteItemInput adds a line to a quote. Labor lines are priced from Hours and
// HourlyRate; other lines from Quantity (default 1) and UnitPrice.
type QuoteItemInput struct {
	ItemType    string           `json:"item_type" validate:"required,oneof=labor part service"`
	Description string           `json:"description" validate:"required"`
	PartID      *uint            `json:"part_id"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Hours       decimal.Decimal  `json:"hours"`
	HourlyRate  decimal.Decimal  `json:"hourly_rate"`
}

// LineAmounts is a priced line item
type LineAmounts struct {
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Hours      decimal.Decimal
	HourlyRate decimal.Decimal
}

// PriceLineItem computes the stored amounts of a line item
func PriceLineItem(in QuoteItemInput) (LineAmounts, error) {
	qty := decimal.NewFromInt(1)
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	if qty.IsNegative() || in.UnitPrice.IsNegative() || in.Hours.IsNegative() || in.HourlyRate.IsNegative() {
		return LineAmounts{}, apperr.Validation("quantities and prices cannot be negative")
	}

	switch in.ItemType {
	case model.ItemTypeLabor:
		return LineAmounts{
			Quantity:   qty,
			UnitPrice:  in.HourlyRate,
			TotalPrice: in.Hours.Mul(in.HourlyRate).Round(2),
			Hours:      in.Hours,
			HourlyRate: in.HourlyRate,
		}, nil
	case model.ItemTypePart, model.ItemTypeService:
		return LineAmounts{
			Quantity:   qty,
			UnitPrice:  in.UnitPrice,
			TotalPrice: qty.Mul(in.UnitPrice).Round(2),
			Hours:      decimal.Zero,
			HourlyRate: decimal.Zero,
		}, nil
	default:
		return LineAmounts{}, apperr.Validation("Invalid item type %q", in.ItemType)
	}
}

// Totals holds the derived money fields of a quote or invoice
type Totals struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// ComputeTotals sums line totals and applies taxRate (a percentage).
// TotalAmount always equals Subtotal + TaxAmount.
func ComputeTotals(lineTotals []decimal.Decimal, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, t := range lineTotals {
		subtotal = subtotal.Add(t)
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Div(hundred).Round(2)
	return Totals{Subtotal: subtotal, TaxAmount: tax, TotalAmount: subtotal.Add(tax)}
}

func quoteEditable(q *model.Quote) error {
	if q.Status != model.QuoteStatusDraft && q.Status != model.QuoteStatusSent {
		return apperr.InvalidState("quote is %s and can no longer be changed", q.Status)
	}
	return nil
}

// recalculateQuoteTotals rewrites subtotal, tax and total from the quote's items
func recalculateQuoteTotals(tx *gorm.DB, quote *model.Quote) error {
	var items []model.QuoteItem
	if err := tx.Select("total_price").Where("quote_id = ?", quote.ID).Find(&items).Error; err != nil {
		return fmt.Errorf("load quote items: %w", err)
	}

	lineTotals := make([]decimal.Decimal, len(items))
	for i, item := range items {
		lineTotals[i] = item.TotalPrice
	}
	totals := ComputeTotals(lineTotals, quote.TaxRate)

	err := tx.Model(quote).Updates(map[string]interface{}{
		"subtotal":     totals.Subtotal,
		"tax_amount":   totals.TaxAmount,
		"total_amount": totals.TotalAmount,
	}).Error
	if err != nil {
		return fmt.Errorf("update quote totals: %w", err)
	}
	quote.Subtotal, quote.TaxAmount, quote.TotalAmount = totals.Subtotal, totals.TaxAmount, totals.TotalAmount
	return nil
}

// AddQuoteItem appends a priced line and recomputes the quote totals in one transaction
func (s *QuoteService) AddQuoteItem(actor Actor, quoteID uint, in QuoteItemInput) (*model.Quote, error) {
	if quoteID == 0 || in.ItemType == "" || strings.TrimSpace(in.Description) == "" {
		return nil, apperr.Validation("Quote ID, item type, and description are required")
	}
	amounts, err := PriceLineItem(in)
	if err != nil {
		return nil, err
	}

	var quote model.Quote
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &quote, actor.TenantID, quoteID, "quote"); err != nil {
			return err
		}
		if err := quoteEditable(&quote); err != nil {
			return err
		}
		if in.PartID != nil {
			var part model.InventoryPart
			if err := findInTenant(tx, &part, actor.TenantID, *in.PartID, "part"); err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&model.QuoteItem{}).Where("quote_id = ?", quote.ID).Count(&count).Error; err != nil {
			return err
		}

		item := model.QuoteItem{
			QuoteID:     quote.ID,
			ItemType:    in.ItemType,
			Description: strings.TrimSpace(in.Description),
			PartID:      in.PartID,
			Quantity:    amounts.Quantity,
			UnitPrice:   amounts.UnitPrice,
			TotalPrice:  amounts.TotalPrice,
			Hours:       amounts.Hours,
			HourlyRate:  amounts.HourlyRate,
			OrderIndex:  int(count),
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		if err := recalculateQuoteTotals(tx, &quote); err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityQuote,
			EntityID:   quote.ID,
			Action:     "item_added",
			NewValues: map[string]interface{}{
				"item_id":      item.ID,
				"item_type":    item.ItemType,
				"total_price":  item.TotalPrice.StringFixed(2),
				"total_amount": quote.TotalAmount.StringFixed(2),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, actor.TenantID, events.EntityQuote, quote.ID, "item_added")
	return s.GetQuote(actor, quote.ID)
}

// RemoveQuoteItem deletes a line and recomputes the quote totals
func (s *QuoteService) RemoveQuoteItem(actor Actor, quoteID, itemID uint) (*model.Quote, error) {
	var quote model.Quote
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &quote, actor.TenantID, quoteID, "quote"); err != nil {
			return err
		}
		if err := quoteEditable(&quote); err != nil {
			return err
		}

		res := tx.Where("quote_id = ? AND id = ?", quote.ID, itemID).Delete(&model.QuoteItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("quote item not found")
		}

		if err := recalculateQuoteTotals(tx, &quote); err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityQuote,
			EntityID:   quote.ID,
			Action:     "item_removed",
			OldValues:  map[string]interface{}{"item_id": itemID},
			NewValues:  map[string]interface{}{"total_amount": quote.TotalAmount.StringFixed(2)},
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, actor.TenantID, events.EntityQuote, quote.ID, "item_removed")
	return s.GetQuote(actor, quote.ID)
}

// RecalculateQuoteTotals recomputes a quote's totals from its items
func (s *QuoteService) RecalculateQuoteTotals(actor Actor, quoteID uint) (*model.Quote, error) {
	var quote model.Quote
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &quote, actor.TenantID, quoteID, "quote"); err != nil {
			return err
		}
		return recalculateQuoteTotals(tx, &quote)
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// SendQuote marks a quote as sent to the client
func (s *QuoteService) SendQuote(actor Actor, quoteID uint) (*model.Quote, error) {
	var quote model.Quote
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &quote, actor.TenantID, quoteID, "quote"); err != nil {
			return err
		}
		if err := quoteEditable(&quote); err != nil {
			return err
		}
		if err := tx.Model(&quote).Update("status", model.QuoteStatusSent).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityQuote,
			EntityID:   quote.ID,
			Action:     "sent",
		})
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordDomainOperation(events.EntityQuote, "sent")
	prometheus.ObserveDocumentValue(events.EntityQuote, quote.TotalAmount.InexactFloat64())
	publish(s.bus, actor.TenantID, events.EntityQuote, quote.ID, "sent")
	return &quote, nil
}

// loadOwnedQuote loads a quote of the actor's tenant; portal actors only see quotes of their own jobs
func loadOwnedQuote(tx *gorm.DB, actor Actor, quoteID uint) (*model.Quote, *model.Job, error) {
	var quote model.Quote
	if err := findInTenant(tx, &quote, actor.TenantID, quoteID, "quote"); err != nil {
		return nil, nil, err
	}
	var job model.Job
	if err := findInTenant(tx, &job, actor.TenantID, quote.JobID, "job"); err != nil {
		return nil, nil, err
	}
	if actor.ClientID != nil && job.ClientID != *actor.ClientID {
		return nil, nil, apperr.NotFound("quote not found")
	}
	return &quote, &job, nil
}

// ApprovalInput is a client's signed acceptance of a quote
type ApprovalInput struct {
	Signature string `json:"signature" validate:"required"`
	ClientIP  string `json:"-"`
}

// ApproveQuote records the client's signature, approves the quote and flags its job
func (s *QuoteService) ApproveQuote(actor Actor, quoteID uint, in ApprovalInput) (*model.Quote, error) {
	if quoteID == 0 || strings.TrimSpace(in.Signature) == "" {
		return nil, apperr.Validation("Quote ID and signature are required")
	}

	var quote *model.Quote
	err := s.db.Transaction(func(tx *gorm.DB) error {
		q, job, err := loadOwnedQuote(tx, actor, quoteID)
		if err != nil {
			return err
		}
		quote = q

		switch quote.Status {
		case model.QuoteStatusDraft, model.QuoteStatusSent:
		default:
			return apperr.InvalidState("quote is %s and cannot be approved", quote.Status)
		}
		// clients only decide on quotes the shop has sent them
		if actor.ClientID != nil && quote.Status != model.QuoteStatusSent {
			return apperr.InvalidState("quote has not been sent")
		}
		if quote.ValidUntil != nil && quote.ValidUntil.Before(today()) {
			return apperr.InvalidState("quote expired on %s", quote.ValidUntil.Format("2006-01-02"))
		}

		approvedAt := now()
		if err := tx.Model(quote).Updates(map[string]interface{}{
			"status":           model.QuoteStatusApproved,
			"client_approved":  true,
			"approved_at":      approvedAt,
			"client_signature": strings.TrimSpace(in.Signature),
			"client_ip":        in.ClientIP,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(job).Updates(map[string]interface{}{
			"quote_approved":    true,
			"quote_approved_at": approvedAt,
		}).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityQuote,
			EntityID:   quote.ID,
			Action:     "approved",
			NewValues:  map[string]interface{}{"client_ip": in.ClientIP, "approved_at": approvedAt},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Quote approved", zap.Uint("tenant_id", actor.TenantID), zap.Uint("quote_id", quote.ID))
	prometheus.RecordDomainOperation(events.EntityQuote, "approved")
	publish(s.bus, actor.TenantID, events.EntityQuote, quote.ID, "approved")
	publish(s.bus, actor.TenantID, events.EntityJob, quote.JobID, "quote_approved")
	return quote, nil
}

// RejectQuote records the client's refusal
func (s *QuoteService) RejectQuote(actor Actor, quoteID uint, reason string) (*model.Quote, error) {
	var quote *model.Quote
	err := s.db.Transaction(func(tx *gorm.DB) error {
		q, _, err := loadOwnedQuote(tx, actor, quoteID)
		if err != nil {
			return err
		}
		quote = q

		switch quote.Status {
		case model.QuoteStatusDraft, model.QuoteStatusSent:
		default:
			return apperr.InvalidState("quote is %s and cannot be rejected", quote.Status)
		}
		// clients only decide on quotes the shop has sent them
		if actor.ClientID != nil && quote.Status != model.QuoteStatusSent {
			return apperr.InvalidState("quote has not been sent")
		}

		if err := tx.Model(quote).Updates(map[string]interface{}{
			"status":           model.QuoteStatusRejected,
			"rejection_reason": strings.TrimSpace(reason),
		}).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityQuote,
			EntityID:   quote.ID,
			Action:     "rejected",
			NewValues:  map[string]interface{}{"rejection_reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordDomainOperation(events.EntityQuote, "rejected")
	publish(s.bus, actor.TenantID, events.EntityQuote, quote.ID, "rejected")
	return quote, nil
}

// ExpireQuotes marks every sent quote whose valid_until lies before the day of at as expired
func (s *QuoteService) ExpireQuotes(at time.Time) (int, error) {
	cutoff := truncateDay(at)

	var expired []model.Quote
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "tenant_id").
			Where("status = ? AND valid_until < ?", model.QuoteStatusSent, cutoff).
			Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]uint, len(expired))
		for i, q := range expired {
			ids[i] = q.ID
		}
		if err := tx.Model(&model.Quote{}).Where("id IN ?", ids).Update("status", model.QuoteStatusExpired).Error; err != nil {
			return err
		}
		for _, q := range expired {
			if err := activity.Record(tx, activity.Entry{
				TenantID:   q.TenantID,
				EntityType: events.EntityQuote,
				EntityID:   q.ID,
				Action:     "expired",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("expire quotes: %w", err)
	}

	for _, q := range expired {
		publish(s.bus, q.TenantID, events.EntityQuote, q.ID, "expired")
	}
	s.log.Info("Expired quotes", zap.Int("count", len(expired)), zap.Time("cutoff", cutoff))
	return len(expired), nil
}

// QuoteFilter narrows ListQuotes
type QuoteFilter struct {
	Status string
	JobID  uint
	PageRequest
}

// ListQuotes lists the actor's quotes, newest first
func (s *QuoteService) ListQuotes(actor Actor, f QuoteFilter) ([]model.Quote, Pagination, error) {
	page, limit, offset := f.normalize()

	query := s.db.Model(&model.Quote{}).Where("tenant_id = ?", actor.TenantID)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.JobID != 0 {
		query = query.Where("job_id = ?", f.JobID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count quotes: %w", err)
	}

	var quotes []model.Quote
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&quotes).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list quotes: %w", err)
	}
	return quotes, newPagination(page, limit, total), nil
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_index, id")
}

// GetQuote loads a quote with its ordered items and job
func (s *QuoteService) GetQuote(actor Actor, quoteID uint) (*model.Quote, error) {
	var quote model.Quote
	query := s.db.Preload("Items", orderedItems).Preload("Job")
	if err := findInTenant(query, &quote, actor.TenantID, quoteID, "quote"); err != nil {
		return nil, err
	}
	if actor.ClientID != nil && (quote.Job == nil || quote.Job.ClientID != *actor.ClientID) {
		return nil, apperr.NotFound("quote not found")
	}
	return &quote, nil
}
