package service

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"math"
	"strings"
	"time"

	"fleetshop/internal/apperr"
	"fleetshop/internal/events"
	"fleetshop/internal/permission"
	"fleetshop/pkg/database"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// now is the service clock; tests replace it
var now = func() time.Time {
	return time.Now().UTC()
}

// today returns the current UTC date at midnight
func today() time.Time {
	return truncateDay(now())
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID   uint
	TenantID uint
	Role     string
	ClientID *uint
}

// UserRef returns the user id as a nullable reference
func (a Actor) UserRef() *uint {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// Can reports whether the actor's role holds any of perms
func (a Actor) Can(perms ...string) bool {
	return permission.HasAnyPermission(a.Role, perms...)
}

func (a Actor) require(perms ...string) error {
	if !a.Can(perms...) {
		return apperr.Forbidden("insufficient permissions")
	}
	return nil
}

// PageRequest selects one page of a listing
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) normalize() (page, limit, offset int) {
	page, limit = p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

// Pagination describes the page returned by a listing
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
}

func newPagination(page, limit int, total int64) Pagination {
	return Pagination{
		CurrentPage: page,
		Limit:       limit,
		Total:       total,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
	}
}

// findInTenant loads the row with id that belongs to tenantID
func findInTenant(tx *gorm.DB, dest interface{}, tenantID, id uint, what string) error {
	err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(dest).Error
	if database.IsNotFound(err) {
		return apperr.NotFound("%s not found", what)
	}
	if err != nil {
		return fmt.Errorf("load %s %d: %w", what, id, err)
	}
	return nil
}

// conflictOr turns unique violations into a conflict with msg
func conflictOr(err error, msg string) error {
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("%s", msg)
	}
	return err
}

func publish(bus *events.Bus, tenantID uint, entity string, id uint, action string) {
	bus.Publish(events.Change{TenantID: tenantID, Entity: entity, EntityID: id, Action: action})
}

func hashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func checkPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// generateTempPassword returns a random 12 character password
func generateTempPassword() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf))[:12], nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func uintPtr(v uint) *uint {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
