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

// InvoiceService derives invoices from quotes and tracks payments against them
type InvoiceService struct {
	db       *gorm.DB
	log      *zap.Logger
	numbers  *numbering.Generator
	settings *SettingsService
	bus      *events.Bus
}

// NewInvoiceService creates an invoice service
func NewInvoiceService(db *gorm.DB, log *zap.Logger, numbers *numbering.Generator, settings *SettingsService, bus *events.Bus) *InvoiceService {
	return &InvoiceService{db: db, log: log, numbers: numbers, settings: settings, bus: bus}
}

// CreateInvoiceFromQuote copies an approved quote's header and items into a new draft invoice
func (s *InvoiceService) CreateInvoiceFromQuote(actor Actor, quoteID uint) (*model.Invoice, error) {
	if quoteID == 0 {
		return nil, apperr.Validation("quote_id is required")
	}

	var invoice model.Invoice
	defer prometheus.TrackDBOperation("invoice_create")(time.Now())

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var quote model.Quote
		if err := findInTenant(tx.Preload("Items", orderedItems), &quote, actor.TenantID, quoteID, "quote"); err != nil {
			return err
		}
		if quote.Status != model.QuoteStatusApproved {
			return apperr.InvalidState("only approved quotes can be invoiced (quote is %s)", quote.Status)
		}

		var existing int64
		if err := tx.Model(&model.Invoice{}).Where("quote_id = ?", quote.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("quote %s has already been invoiced", quote.QuoteNumber)
		}

		var job model.Job
		if err := findInTenant(tx, &job, actor.TenantID, quote.JobID, "job"); err != nil {
			return err
		}

		issueDate := today()
		invoice = model.Invoice{
			TenantID:      actor.TenantID,
			InvoiceNumber: s.numbers.InvoiceNumber(),
			JobID:         quote.JobID,
			QuoteID:       uintPtr(quote.ID),
			ClientID:      job.ClientID,
			Title:         quote.Title,
			Description:   quote.Description,
			Status:        model.InvoiceStatusDraft,
			Subtotal:      quote.Subtotal,
			TaxRate:       quote.TaxRate,
			TaxAmount:     quote.TaxAmount,
			TotalAmount:   quote.TotalAmount,
			AmountPaid:    decimal.Zero,
			AmountDue:     quote.TotalAmount,
			IssueDate:     issueDate,
			DueDate:       issueDate.AddDate(0, 0, s.settings.InvoiceDueDays(tx, actor.TenantID)),
			Terms:         quote.Terms,
			CreatedBy:     actor.UserID,
		}
		if err := tx.Omit("Items").Create(&invoice).Error; err != nil {
			return conflictOr(err, "quote has already been invoiced")
		}

		if len(quote.Items) > 0 {
			items := make([]model.InvoiceItem, len(quote.Items))
			for i, qi := range quote.Items {
				items[i] = model.InvoiceItem{
					InvoiceID:   invoice.ID,
					ItemType:    qi.ItemType,
					Description: qi.Description,
					PartID:      qi.PartID,
					Quantity:    qi.Quantity,
					UnitPrice:   qi.UnitPrice,
					TotalPrice:  qi.TotalPrice,
					Hours:       qi.Hours,
					HourlyRate:  qi.HourlyRate,
					OrderIndex:  qi.OrderIndex,
				}
			}
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("copy quote items: %w", err)
			}
			invoice.Items = items
		}

		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityInvoice,
			EntityID:   invoice.ID,
			Action:     "created_from_quote",
			NewValues:  map[string]interface{}{"quote_id": quote.ID, "invoice_id": invoice.ID},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Invoice created from quote",
		zap.Uint("tenant_id", actor.TenantID),
		zap.Uint("invoice_id", invoice.ID),
		zap.Uint("quote_id", quoteID),
		zap.String("invoice_number", invoice.InvoiceNumber))
	prometheus.RecordDomainOperation(events.EntityInvoice, "created_from_quote")
	prometheus.ObserveDocumentValue(events.EntityInvoice, invoice.TotalAmount.InexactFloat64())
	publish(s.bus, actor.TenantID, events.EntityInvoice, invoice.ID, "created_from_quote")
	return &invoice, nil
}

// PaymentInput records money received against an invoice
type PaymentInput struct {
	Amount           decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference string          `json:"payment_reference"`
}

// PaymentOutcome is the state of an invoice after a payment
type PaymentOutcome struct {
	AmountPaid decimal.Decimal
	AmountDue  decimal.Decimal
	Status     string
	FullyPaid  bool
}

// ApplyPayment adds amount to paid and derives amount due (never negative) and status
func ApplyPayment(total, paid, amount decimal.Decimal) PaymentOutcome {
	newPaid := paid.Add(amount)
	due := total.Sub(newPaid)
	out := PaymentOutcome{AmountPaid: newPaid, AmountDue: due, Status: model.InvoiceStatusPartial}
	if !due.IsPositive() {
		out.AmountDue = decimal.Zero
		out.Status = model.InvoiceStatusPaid
		out.FullyPaid = true
	}
	return out
}

// RecordPayment applies a payment and moves the invoice to partial or paid
func (s *InvoiceService) RecordPayment(actor Actor, invoiceID uint, in PaymentInput) (*model.Invoice, error) {
	if invoiceID == 0 || !in.Amount.IsPositive() {
		return nil, apperr.Validation("Invoice ID and a positive payment amount are required")
	}

	var invoice model.Invoice
	var outcome PaymentOutcome
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &invoice, actor.TenantID, invoiceID, "invoice"); err != nil {
			return err
		}
		switch invoice.Status {
		case model.InvoiceStatusCancelled:
			return apperr.InvalidState("invoice is cancelled")
		case model.InvoiceStatusPaid:
			return apperr.InvalidState("invoice is already paid")
		}

		outcome = ApplyPayment(invoice.TotalAmount, invoice.AmountPaid, in.Amount)
		updates := map[string]interface{}{
			"amount_paid":       outcome.AmountPaid,
			"amount_due":        outcome.AmountDue,
			"status":            outcome.Status,
			"payment_method":    in.PaymentMethod,
			"payment_reference": in.PaymentReference,
		}
		if outcome.FullyPaid {
			updates["paid_date"] = today()
		}
		if err := tx.Model(&invoice).Updates(updates).Error; err != nil {
			return err
		}

		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityInvoice,
			EntityID:   invoice.ID,
			Action:     "payment_recorded",
			NewValues: map[string]interface{}{
				"amount_paid":    in.Amount.StringFixed(2),
				"payment_method": in.PaymentMethod,
				"status":         outcome.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Payment recorded",
		zap.Uint("tenant_id", actor.TenantID),
		zap.Uint("invoice_id", invoice.ID),
		zap.String("amount", in.Amount.StringFixed(2)),
		zap.String("status", outcome.Status))
	prometheus.RecordDomainOperation(events.EntityInvoice, "payment_recorded")
	prometheus.ObserveDocumentValue("payment", in.Amount.InexactFloat64())
	publish(s.bus, actor.TenantID, events.EntityInvoice, invoice.ID, "payment_recorded")
	return &invoice, nil
}

func (s *InvoiceService) setStatus(actor Actor, invoiceID uint, status, action string, allowed ...string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &invoice, actor.TenantID, invoiceID, "invoice"); err != nil {
			return err
		}
		ok := false
		for _, a := range allowed {
			if invoice.Status == a {
				ok = true
				break
			}
		}
		if !ok {
			return apperr.InvalidState("invoice is %s", invoice.Status)
		}

		old := invoice.Status
		if err := tx.Model(&invoice).Update("status", status).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityInvoice,
			EntityID:   invoice.ID,
			Action:     action,
			OldValues:  map[string]interface{}{"status": old},
			NewValues:  map[string]interface{}{"status": status},
		})
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordDomainOperation(events.EntityInvoice, action)
	publish(s.bus, actor.TenantID, events.EntityInvoice, invoice.ID, action)
	return &invoice, nil
}

// SendInvoice marks an invoice as sent to the client
func (s *InvoiceService) SendInvoice(actor Actor, invoiceID uint) (*model.Invoice, error) {
	return s.setStatus(actor, invoiceID, model.InvoiceStatusSent, "sent",
		model.InvoiceStatusDraft, model.InvoiceStatusSent, model.InvoiceStatusOverdue)
}

// CancelInvoice voids an invoice that has not been paid in full
func (s *InvoiceService) CancelInvoice(actor Actor, invoiceID uint) (*model.Invoice, error) {
	return s.setStatus(actor, invoiceID, model.InvoiceStatusCancelled, "cancelled",
		model.InvoiceStatusDraft, model.InvoiceStatusSent, model.InvoiceStatusPartial, model.InvoiceStatusOverdue)
}

// MarkOverdue flags every unpaid, non-cancelled invoice due before the day of at
func (s *InvoiceService) MarkOverdue(at time.Time) (int, error) {
	cutoff := truncateDay(at)

	var overdue []model.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "tenant_id").
			Where("status NOT IN ? AND due_date < ?",
				[]string{model.InvoiceStatusPaid, model.InvoiceStatusCancelled, model.InvoiceStatusOverdue}, cutoff).
			Find(&overdue).Error; err != nil {
			return err
		}
		if len(overdue) == 0 {
			return nil
		}

		ids := make([]uint, len(overdue))
		for i, inv := range overdue {
			ids[i] = inv.ID
		}
		if err := tx.Model(&model.Invoice{}).Where("id IN ?", ids).Update("status", model.InvoiceStatusOverdue).Error; err != nil {
			return err
		}
		for _, inv := range overdue {
			if err := activity.Record(tx, activity.Entry{
				TenantID:   inv.TenantID,
				EntityType: events.EntityInvoice,
				EntityID:   inv.ID,
				Action:     "marked_overdue",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}

	for _, inv := range overdue {
		publish(s.bus, inv.TenantID, events.EntityInvoice, inv.ID, "marked_overdue")
	}
	s.log.Info("Marked invoices overdue", zap.Int("count", len(overdue)), zap.Time("cutoff", cutoff))
	return len(overdue), nil
}

// InvoiceFilter narrows ListInvoices
type InvoiceFilter struct {
	Status   string
	ClientID uint
	PageRequest
}

// ListInvoices lists the actor's invoices, newest first. Portal actors only see
// their own, and never drafts.
func (s *InvoiceService) ListInvoices(actor Actor, f InvoiceFilter) ([]model.Invoice, Pagination, error) {
	page, limit, offset := f.normalize()

	query := s.db.Model(&model.Invoice{}).Where("tenant_id = ?", actor.TenantID)
	if actor.ClientID != nil {
		query = query.Where("client_id = ? AND status <> ?", *actor.ClientID, model.InvoiceStatusDraft)
	} else if f.ClientID != 0 {
		query = query.Where("client_id = ?", f.ClientID)
	}
	if status := strings.TrimSpace(f.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count invoices: %w", err)
	}

	var invoices []model.Invoice
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, newPagination(page, limit, total), nil
}

// GetInvoice loads an invoice with its ordered items
func (s *InvoiceService) GetInvoice(actor Actor, invoiceID uint) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := findInTenant(s.db.Preload("Items", orderedItems), &invoice, actor.TenantID, invoiceID, "invoice"); err != nil {
		return nil, err
	}
	if actor.ClientID != nil && (invoice.ClientID != *actor.ClientID || invoice.Status == model.InvoiceStatusDraft) {
		return nil, apperr.NotFound("invoice not found")
	}
	return &invoice, nil
}
