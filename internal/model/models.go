package model

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&Tenant{},
		&TenantBranding{},
		&TenantFeatures{},
		&SystemConfig{},
		&User{},
		&Client{},
		&Vehicle{},
		&JobStatus{},
		&Job{},
		&Quote{},
		&QuoteItem{},
		&Invoice{},
		&InvoiceItem{},
		&Supplier{},
		&PurchaseOrder{},
		&InventoryPart{},
		&InventoryMovement{},
		&JobPartsAllocation{},
		&CalendarEvent{},
		&ActivityLog{},
	}
}
