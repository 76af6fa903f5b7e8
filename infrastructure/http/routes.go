package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	adminusers "wasteboard/frontend/adminUsers"
	auditpage "wasteboard/frontend/audit"
	collectorcentral "wasteboard/frontend/collectorCentral"
	collectorunit "wasteboard/frontend/collectorUnit"
	"wasteboard/frontend/customer"
	droprequests "wasteboard/frontend/dropRequests"
	exportspage "wasteboard/frontend/exports"
	"wasteboard/frontend/help"
	"wasteboard/frontend/login"
	"wasteboard/frontend/settings"
	"wasteboard/frontend/stock"
	"wasteboard/frontend/transfers"
	wastebankcentral "wasteboard/frontend/wastebankCentral"
	wastebankunit "wasteboard/frontend/wastebankUnit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/transfer"
)

const dashboardPrefix = "/dashboard"

var (
	allRoles      = rbac.Roles()
	customerOnly  = []string{rbac.RoleCustomer}
	unitStaff     = []string{rbac.RoleWastebankUnit}
	centralStaff  = []string{rbac.RoleWastebankCentral}
	dispatchers   = []string{rbac.RoleCollectorCentral}
	collectors    = []string{rbac.RoleCollectorUnit}
	exportersRole = []string{rbac.RoleCustomer, rbac.RoleWastebankUnit, rbac.RoleWastebankCentral, rbac.RoleCollectorCentral}
	// admin passes every check in rbac.Allowed, so it is never listed.
)

// route grants roles on the full path and mounts h on the /dashboard sub-router.
// Path parameters become single-segment wildcards in the RBAC table.
func (s *Server) route(r chi.Router, roles []string, code, method, path string, h http.Handler) {
	s.Rbac.Grant(roles, code, method, rbacPattern(path))
	r.Method(method, strings.TrimPrefix(path, dashboardPrefix), h)
}

func rbacPattern(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			segs[i] = "*"
		}
	}
	return strings.Join(segs, "/")
}

func (s *Server) dropServices() droprequests.Services {
	return droprequests.Services{DB: s.DB, Requests: s.Requests, Collectors: s.Collectors, Catalog: s.Catalog, Profiles: s.Profiles}
}

func (s *Server) transferServices() transfers.Services {
	return transfers.Services{DB: s.DB, Transfers: s.Transfers, Catalog: s.Catalog, Inventory: s.Inventory}
}

// RegisterLoginRoutes registers login/logout routes.
func (s *Server) RegisterLoginRoutes() {
	s.router.Get("/login", login.GetLoginScreenHandler)
	s.router.Post("/login", login.CreateLoginHandler(s.DB, s.SessionCache, s.UserCache, s.opts.Session))
	s.router.Post("/logout", login.LogoutHandler(s.DB, s.SessionCache, s.opts.Session))
}

// RegisterSharedRoutes registers pages every signed-in role reaches from the nav.
func (s *Server) RegisterSharedRoutes(r chi.Router) {
	s.route(r, allRoles, "PROFILE_VIEW", http.MethodGet, "/dashboard/profile", settings.ProfilePageQueryHandler(s.Profiles))
	s.route(r, allRoles, "PROFILE_EDIT", http.MethodPost, "/dashboard/profile", settings.ProfileUpdateCommandHandler(s.Profiles, s.SessionCache, s.UserCache))
	s.route(r, allRoles, "PROFILE_PASSWORD_EDIT", http.MethodPost, "/dashboard/profile/password", settings.ChangePasswordCommandHandler(s.Profiles))
	s.route(r, allRoles, "HELP_VIEW", http.MethodGet, "/dashboard/help", help.HelpPageQueryHandler())
}

// RegisterCustomerRoutes registers the customer's own request pages.
func (s *Server) RegisterCustomerRoutes(r chi.Router) {
	svc := s.dropServices()
	s.route(r, customerOnly, "CUSTOMER_DASHBOARD_VIEW", http.MethodGet, customer.BasePath, customer.DashboardPageQueryHandler(svc, s.opts.Limits))
	s.route(r, customerOnly, "CUSTOMER_REQUEST_NEW", http.MethodGet, customer.NewPath, customer.NewRequestPageQueryHandler(svc))
	s.route(r, customerOnly, "CUSTOMER_REQUEST_CREATE", http.MethodPost, customer.RequestsPath, customer.CreateRequestCommandHandler(svc))
	s.route(r, customerOnly, "CUSTOMER_REQUEST_VIEW", http.MethodGet, customer.RequestsPath+"/{id}", customer.RequestDetailPageQueryHandler(svc))
	s.route(r, customerOnly, "CUSTOMER_REQUEST_SLIP", http.MethodGet, customer.RequestsPath+"/{id}/slip.pdf", droprequests.SlipPDFHandler(svc))
	s.route(r, customerOnly, "CUSTOMER_REQUEST_CANCEL", http.MethodPost, customer.RequestsPath+"/{id}/cancel", droprequests.CancelCommandHandler(svc, customer.RequestsPath))
	s.route(r, customerOnly, "CUSTOMER_REQUEST_RATE", http.MethodPost, customer.RequestsPath+"/{id}/rate", droprequests.RateCommandHandler(svc, customer.RequestsPath))
}

// RegisterWastebankUnitRoutes registers a waste bank unit's requests, prices, stock and transfers.
func (s *Server) RegisterWastebankUnitRoutes(r chi.Router) {
	svc := s.dropServices()
	base := wastebankunit.RequestsPath
	s.route(r, unitStaff, "UNIT_REQUESTS_VIEW", http.MethodGet, wastebankunit.BasePath, wastebankunit.RequestsPageQueryHandler(svc, s.opts.Limits))
	s.route(r, unitStaff, "UNIT_REQUEST_VIEW", http.MethodGet, base+"/{id}", wastebankunit.RequestDetailPageQueryHandler(svc))
	s.route(r, unitStaff, "UNIT_REQUEST_SLIP", http.MethodGet, base+"/{id}/slip.pdf", droprequests.SlipPDFHandler(svc))
	s.route(r, unitStaff, "UNIT_REQUEST_ASSIGN", http.MethodPost, base+"/{id}/assign", droprequests.AssignCommandHandler(svc, base))
	s.route(r, unitStaff, "UNIT_REQUEST_RECEIVE", http.MethodPost, base+"/{id}/receive", droprequests.ReceiveCommandHandler(svc, base))
	s.route(r, unitStaff, "UNIT_REQUEST_CANCEL", http.MethodPost, base+"/{id}/cancel", droprequests.CancelCommandHandler(svc, base))

	s.route(r, unitStaff, "UNIT_PRICES_VIEW", http.MethodGet, wastebankunit.PricesPath, wastebankunit.PricesPageQueryHandler(s.Catalog))
	s.route(r, unitStaff, "UNIT_PRICES_IMPORT", http.MethodPost, wastebankunit.PricesPath+"/import", wastebankunit.PriceImportCommandHandler(s.Catalog))
	s.route(r, unitStaff, "UNIT_PRICE_EDIT", http.MethodPost, wastebankunit.PricesPath+"/{id}", wastebankunit.SetPriceCommandHandler(s.Catalog))
	s.route(r, unitStaff, "UNIT_PRICE_RESET", http.MethodPost, wastebankunit.PricesPath+"/{id}/reset", wastebankunit.ResetPriceCommandHandler(s.Catalog))

	s.route(r, unitStaff, "UNIT_STOCK_VIEW", http.MethodGet, wastebankunit.StockPath, stock.StockPageQueryHandler(s.DB, s.Inventory, wastebankunit.StockPath))
	s.registerTransferRoutes(r, unitStaff, "UNIT", wastebankunit.TransfersPath, "Transfers")
}

// RegisterWastebankCentralRoutes registers the central bank's overview, approvals, units and catalog.
func (s *Server) RegisterWastebankCentralRoutes(r chi.Router) {
	overview := wastebankcentral.Services{DB: s.DB, Requests: s.Requests, Transfers: s.Transfers, Inventory: s.Inventory}
	s.route(r, centralStaff, "CENTRAL_OVERVIEW_VIEW", http.MethodGet, wastebankcentral.BasePath, wastebankcentral.OverviewPageQueryHandler(overview))
	s.route(r, centralStaff, "CENTRAL_STOCK_VIEW", http.MethodGet, wastebankcentral.StockPath, stock.StockPageQueryHandler(s.DB, s.Inventory, wastebankcentral.StockPath))
	s.registerTransferRoutes(r, centralStaff, "CENTRAL", wastebankcentral.TransfersPath, "Transfer approvals")

	s.route(r, centralStaff, "CENTRAL_UNITS_VIEW", http.MethodGet, wastebankcentral.UnitsPath, wastebankcentral.UnitsPageQueryHandler(s.DB, s.opts.Limits))
	s.route(r, centralStaff, "CENTRAL_UNITS_CREATE", http.MethodPost, wastebankcentral.UnitsPath, wastebankcentral.CreateUnitCommandHandler(s.DB))

	catalogPath := wastebankcentral.CatalogPath
	s.route(r, centralStaff, "CENTRAL_CATALOG_VIEW", http.MethodGet, catalogPath, wastebankcentral.CatalogPageQueryHandler(s.Catalog))
	s.route(r, centralStaff, "CENTRAL_CATEGORY_CREATE", http.MethodPost, catalogPath+"/categories", wastebankcentral.CreateCategoryCommandHandler(s.Catalog))
	s.route(r, centralStaff, "CENTRAL_TYPE_CREATE", http.MethodPost, catalogPath+"/types", wastebankcentral.CreateTypeCommandHandler(s.Catalog))
	s.route(r, centralStaff, "CENTRAL_TYPE_EDIT", http.MethodPost, catalogPath+"/types/{id}", wastebankcentral.UpdateTypeCommandHandler(s.Catalog))
}

func (s *Server) registerTransferRoutes(r chi.Router, roles []string, codePrefix, base, title string) {
	svc := s.transferServices()
	s.route(r, roles, codePrefix+"_TRANSFERS_VIEW", http.MethodGet, base, transfers.ListPageQueryHandler(svc, base, title, s.opts.Limits))
	s.route(r, roles, codePrefix+"_TRANSFER_NEW", http.MethodGet, base+"/new", transfers.NewPageQueryHandler(svc, base))
	s.route(r, roles, codePrefix+"_TRANSFER_CREATE", http.MethodPost, base, transfers.CreateCommandHandler(svc, base))
	s.route(r, roles, codePrefix+"_TRANSFER_VIEW", http.MethodGet, base+"/{id}", transfers.DetailPageQueryHandler(svc, base))
	for _, action := range []string{transfer.ActionApprove, transfer.ActionReject, transfer.ActionShip, transfer.ActionReceive, transfer.ActionCancel} {
		s.route(r, roles, codePrefix+"_TRANSFER_"+strings.ToUpper(action), http.MethodPost, base+"/{id}/"+action, transfers.ActionCommandHandler(svc, base, action))
	}
}

// RegisterCollectorCentralRoutes registers the dispatch desk: collectors and the pickup queue.
func (s *Server) RegisterCollectorCentralRoutes(r chi.Router) {
	svc := s.dropServices()
	base := collectorcentral.RequestsPath
	s.route(r, dispatchers, "DISPATCH_COLLECTORS_VIEW", http.MethodGet, collectorcentral.BasePath, collectorcentral.CollectorsPageQueryHandler(s.Collectors, s.opts.Limits))
	s.route(r, dispatchers, "DISPATCH_COLLECTOR_ACTIVE", http.MethodPost, collectorcentral.BasePath+"/collectors/{id}/active",
		collectorcentral.SetActiveCommandHandler(s.DB, s.Collectors, s.SessionCache, s.UserCache))
	s.route(r, dispatchers, "DISPATCH_QUEUE_VIEW", http.MethodGet, collectorcentral.QueuePath, collectorcentral.QueuePageQueryHandler(svc, s.opts.Limits))
	s.route(r, dispatchers, "DISPATCH_REQUEST_VIEW", http.MethodGet, base+"/{id}", collectorcentral.RequestDetailPageQueryHandler(svc))
	s.route(r, dispatchers, "DISPATCH_REQUEST_SLIP", http.MethodGet, base+"/{id}/slip.pdf", droprequests.SlipPDFHandler(svc))
	s.route(r, dispatchers, "DISPATCH_REQUEST_ASSIGN", http.MethodPost, base+"/{id}/assign", collectorcentral.AssignCommandHandler(svc))
	s.route(r, dispatchers, "DISPATCH_REQUEST_CANCEL", http.MethodPost, base+"/{id}/cancel", droprequests.CancelCommandHandler(svc, base))
}

// RegisterCollectorUnitRoutes registers a field collector's task pages.
func (s *Server) RegisterCollectorUnitRoutes(r chi.Router) {
	svc := s.dropServices()
	base := collectorunit.TasksPath
	s.route(r, collectors, "TASKS_VIEW", http.MethodGet, collectorunit.BasePath, collectorunit.TasksPageQueryHandler(svc, s.opts.Limits))
	s.route(r, collectors, "TASK_VIEW", http.MethodGet, base+"/{id}", collectorunit.TaskDetailPageQueryHandler(svc))
	s.route(r, collectors, "TASK_SLIP", http.MethodGet, base+"/{id}/slip.pdf", droprequests.SlipPDFHandler(svc))
	s.route(r, collectors, "TASK_START", http.MethodPost, base+"/{id}/start", collectorunit.StartCommandHandler(svc))
	s.route(r, collectors, "TASK_COMPLETE", http.MethodPost, base+"/{id}/complete", collectorunit.CompleteCommandHandler(svc))
}

// RegisterExportRoutes registers the export page and downloads; services scope the rows.
func (s *Server) RegisterExportRoutes(r chi.Router) {
	svc := exportspage.Services{DB: s.DB, Requests: s.Requests, Transfers: s.Transfers}
	s.route(r, exportersRole, "EXPORTS_VIEW", http.MethodGet, exportspage.Path, exportspage.ExportsPageQueryHandler())
	s.route(r, exportersRole, "EXPORT_DROP_REQUESTS_CSV", http.MethodGet, exportspage.Path+"/drop-requests.csv", exportspage.DropRequestsCSVHandler(svc))
	s.route(r, []string{rbac.RoleWastebankUnit, rbac.RoleWastebankCentral}, "EXPORT_TRANSFERS_CSV", http.MethodGet, exportspage.Path+"/transfers.csv", exportspage.TransfersCSVHandler(svc))
	s.route(r, exportersRole, "EXPORT_WORKBOOK_XLSX", http.MethodGet, exportspage.Path+"/workbook.xlsx", exportspage.WorkbookHandler(svc))
}

// RegisterAdminRoutes registers admin-only routes.
func (s *Server) RegisterAdminRoutes(r chi.Router) {
	admin := []string{rbac.RoleAdmin}
	s.route(r, admin, "ADMIN_USERS_LIST_VIEW", http.MethodGet, "/dashboard/admin/users", adminusers.UsersPageQueryHandler(s.DB, s.opts.Limits))
	s.route(r, admin, "ADMIN_USERS_CREATE", http.MethodPost, "/dashboard/admin/users", adminusers.CreateUserCommandHandler(s.DB, s.UserCache, s.Audit))
	s.route(r, admin, "ADMIN_USERS_ACTIVE", http.MethodPost, "/dashboard/admin/users/{id}/active",
		adminusers.SetUserActiveCommandHandler(s.DB, s.SessionCache, s.UserCache, s.Audit))
	s.route(r, admin, "ADMIN_AUDIT_VIEW", http.MethodGet, "/dashboard/admin/audit", auditpage.AuditPageQueryHandler(s.DB, s.opts.Limits))
}
