package events

import (
	"sync"

	"go.uber.org/zap"
)

// Entities
const (
	EntityTenant   = "tenant"
	EntityUser     = "user"
	EntityClient   = "client"
	EntityVehicle  = "vehicle"
	EntityJob      = "job"
	EntityQuote    = "quote"
	EntityInvoice  = "invoice"
	EntityPart     = "inventory_part"
	EntitySupplier = "supplier"
	EntityPurchase = "purchase_order"
	EntityCalendar = "calendar_event"
	EntityBranding = "tenant_branding"
	EntityFeatures = "tenant_features"
)

// Change describes a committed write to a tenant entity
type Change struct {
	TenantID uint
	Entity   string
	EntityID uint
	Action   string
}

// Handler reacts to a change
type Handler func(Change)

// Bus fans committed changes out to in-process subscribers.
// Handlers run synchronously on the publishing goroutine, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *zap.Logger
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers h for every subsequent change
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers c to all subscribers. A panicking handler is logged and
// does not stop delivery to the others.
func (b *Bus) Publish(c Change) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, c)
	}
}

func (b *Bus) deliver(h Handler, c Change) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.Any("panic", r),
				zap.String("entity", c.Entity),
				zap.String("action", c.Action),
			)
		}
	}()
	h(c)
}

// LogChanges subscribes a debug logger to the bus
func LogChanges(b *Bus, logger *zap.Logger) {
	b.Subscribe(func(c Change) {
		logger.Debug("Entity changed",
			zap.Uint("tenant_id", c.TenantID),
			zap.String("entity", c.Entity),
			zap.Uint("entity_id", c.EntityID),
			zap.String("action", c.Action),
		)
	})
}
