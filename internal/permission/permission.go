package permission

import "sort"

// Permissions
const (
	All = "all"

	TenantManagement = "tenant_management"
	UserManagement   = "user_management"
	Settings         = "settings"

	JobManagement = "job_management"
	JobView       = "job_view"
	JobUpdate     = "job_update"
	JobApproval   = "job_approval"

	FinancialManagement = "financial_management"
	FinancialView       = "financial_view"
	Invoicing           = "invoicing"
	Quotes              = "quotes"

	ClientManagement = "client_management"
	ClientPortal     = "client_portal"
	JobViewOwn       = "job_view_own"
	QuoteApproval    = "quote_approval"

	InventoryManagement = "inventory_management"
	PartsUsage          = "parts_usage"

	Reporting         = "reporting"
	BasicReporting    = "basic_reporting"
	AdvancedReporting = "advanced_reporting"

	TimeTracking = "time_tracking"
	UserView     = "user_view"
)

// Roles
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleAccounts   = "accounts"
	RoleTechnician = "technician"
	RoleClient     = "client"
)

type set map[string]struct{}

func newSet(perms ...string) set {
	s := make(set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

var rolePermissions = map[string]set{
	RoleSuperAdmin: newSet(All),
	RoleAdmin: newSet(TenantManagement, UserManagement, JobManagement, FinancialManagement,
		ClientManagement, InventoryManagement, Reporting, Settings),
	RoleManager: newSet(JobManagement, JobApproval, FinancialView, ClientManagement,
		Reporting, UserView),
	RoleAccounts:   newSet(FinancialManagement, Invoicing, Quotes, ClientManagement, Reporting),
	RoleTechnician: newSet(JobView, JobUpdate, TimeTracking, PartsUsage),
	RoleClient:     newSet(ClientPortal, JobViewOwn, QuoteApproval),
}

var routePermissions = map[string][]string{
	"/dashboard":   {JobView, ClientPortal},
	"/jobs":        {JobManagement, JobView},
	"/quotes":      {Quotes, FinancialView},
	"/invoices":    {Invoicing, FinancialView},
	"/clients":     {ClientManagement},
	"/inventory":   {InventoryManagement},
	"/reports":     {Reporting, BasicReporting},
	"/admin":       {TenantManagement, UserManagement},
	"/super-admin": {All},
}

// IsValidRole reports whether role is one of the known roles
func IsValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// IsStaffRole reports whether role can be assigned to a tenant user
func IsStaffRole(role string) bool {
	return IsValidRole(role) && role != RoleSuperAdmin && role != RoleClient
}

// HasPermission reports whether role holds perm. The "all" permission grants everything.
func HasPermission(role, perm string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	if _, ok := perms[All]; ok {
		return true
	}
	_, ok = perms[perm]
	return ok
}

// HasAnyPermission reports whether role holds at least one of perms
func HasAnyPermission(role string, perms ...string) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// CanAccessRoute checks a top-level route against the route map; unmapped routes are public
func CanAccessRoute(role, route string) bool {
	required, ok := routePermissions[route]
	if !ok {
		return true
	}
	return HasAnyPermission(role, required...)
}

// ForRole lists the permissions of role, for profile responses
func ForRole(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, 0, len(perms))
	for p := range perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RoutesFor lists the top-level routes role can open, in order
func RoutesFor(role string) []string {
	out := make([]string, 0, len(routePermissions))
	for route := range routePermissions {
		if CanAccessRoute(role, route) {
			out = append(out, route)
		}
	}
	sort.Strings(out)
	return out
}
