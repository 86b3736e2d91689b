package service

import (
	"testing"

	"fleetshop/internal/apperr"
	"fleetshop/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSupplier(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	other := f.tenant(t, "Other Shop")

	supplier, err := f.suppliers.CreateSupplier(admin, SupplierInput{Name: " Brake World ", Email: "Sales@BrakeWorld.example"})
	require.NoError(t, err)
	assert.Equal(t, "Brake World", supplier.Name)
	assert.Equal(t, "sales@brakeworld.example", supplier.Email)
	assert.True(t, supplier.IsActive)

	_, err = f.suppliers.CreateSupplier(admin, SupplierInput{Name: "BRAKE WORLD"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.suppliers.CreateSupplier(other, SupplierInput{Name: "Brake World"})
	assert.NoError(t, err)

	_, err = f.suppliers.CreateSupplier(admin, SupplierInput{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.suppliers.GetSupplier(other, supplier.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListSuppliers(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	for _, name := range []string{"Zed Parts", "Alpha Tyres", "Mid Motors"} {
		_, err := f.suppliers.CreateSupplier(admin, SupplierInput{Name: name})
		require.NoError(t, err)
	}
	require.NoError(t, f.db.Model(&model.Supplier{}).Where("name = ?", "Mid Motors").Update("is_active", false).Error)

	all, page, err := f.suppliers.ListSuppliers(admin, SupplierFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alpha Tyres", all[0].Name)
	assert.Equal(t, int64(3), page.Total)

	active := true
	onlyActive, _, err := f.suppliers.ListSuppliers(admin, SupplierFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Len(t, onlyActive, 2)
}

func TestPurchaseOrders(t *testing.T) {
	f := newFixture(t)
	admin := f.tenant(t, "Fleet Works")
	supplier, err := f.suppliers.CreateSupplier(admin, SupplierInput{Name: "Brake World"})
	require.NoError(t, err)

	order, err := f.suppliers.CreatePurchaseOrder(admin, PurchaseOrderInput{SupplierID: supplier.ID, Notes: "pads"})
	require.NoError(t, err)
	assert.Regexp(t, `^PO-\d+$`, order.PONumber)
	assert.Equal(t, model.POStatusPending, order.Status)

	_, err = f.suppliers.CreatePurchaseOrder(admin, PurchaseOrderInput{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	other := f.tenant(t, "Other Shop")
	_, err = f.suppliers.CreatePurchaseOrder(other, PurchaseOrderInput{SupplierID: supplier.ID})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.suppliers.UpdatePurchaseOrderStatus(admin, order.ID, model.POStatusReceived)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	ordered, err := f.suppliers.UpdatePurchaseOrderStatus(admin, order.ID, model.POStatusOrdered)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusOrdered, ordered.Status)

	received, err := f.suppliers.UpdatePurchaseOrderStatus(admin, order.ID, model.POStatusReceived)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusReceived, received.Status)

	_, err = f.suppliers.UpdatePurchaseOrderStatus(admin, order.ID, model.POStatusCancelled)
	assert.ErrorIs(t, err, apperr.ErrInvalidState, "received orders are closed")

	listed, _, err := f.suppliers.ListPurchaseOrders(admin, PurchaseOrderFilter{Status: model.POStatusReceived})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Supplier)
	assert.Equal(t, "Brake World", listed[0].Supplier.Name)

	require.NoError(t, f.db.Model(&model.Supplier{}).Where("id = ?", supplier.ID).Update("is_active", false).Error)
	_, err = f.suppliers.CreatePurchaseOrder(admin, PurchaseOrderInput{SupplierID: supplier.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}
