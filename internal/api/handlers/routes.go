package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/api/middleware"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/rbac"
)

// Routes регистрирует маршруты /api/v1. Вызывается внутри группы,
// уже защищённой JWTAuth и rate limiter.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/me", h.GetMe)
	r.Get("/me/stats", h.GetMyStats)

	r.Route("/projects", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableProjects))
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Get("/{id}", h.GetProject)
		r.Patch("/{id}", h.UpdateProject)
		r.Delete("/{id}", h.DeleteProject)
		r.Get("/{id}/buildings", h.ListBuildings)
		r.Get("/{id}/matrix", h.GetMatrix)
	})

	r.Route("/units", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableUnits))
		r.Get("/", h.ListUnits)
		r.Post("/", h.CreateUnit)
		r.Post("/add-unit", h.AddUnit)
		r.Post("/add-floor", h.AddFloor)
		r.Get("/{id}", h.GetUnit)
		r.Patch("/{id}", h.UpdateUnit)
		r.Delete("/{id}", h.DeleteUnit)
	})

	r.Route("/persons", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TablePersons))
		r.Get("/", h.ListPersons)
		r.Post("/", h.CreatePerson)
		r.Get("/{id}", h.GetPerson)
		r.Patch("/{id}", h.UpdatePerson)
		r.Delete("/{id}", h.DeletePerson)
	})

	r.Route("/contractors", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableContractors))
		r.Get("/", h.ListContractors)
		r.Post("/", h.CreateContractor)
		r.Get("/{id}", h.GetContractor)
		r.Patch("/{id}", h.UpdateContractor)
		r.Delete("/{id}", h.DeleteContractor)
	})

	r.Route("/brigades", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableBrigades))
		r.Get("/", h.ListBrigades)
		r.Post("/", h.CreateBrigade)
		r.Patch("/{id}", h.RenameBrigade)
		r.Delete("/{id}", h.DeleteBrigade)
	})

	r.Route("/statuses/{entity}", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableStatuses))
		r.Get("/", h.ListStatuses)
		r.Post("/", h.CreateStatus)
		r.Patch("/{id}", h.UpdateStatus)
		r.Delete("/{id}", h.DeleteStatus)
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableTickets))
		r.Get("/", h.ListTickets)
		r.Post("/", h.CreateTicket)
		r.Get("/{id}", h.GetTicket)
		r.Patch("/{id}", h.UpdateTicket)
		r.Delete("/{id}", h.DeleteTicket)
		attachmentRoutes(r, h, model.ParentTicket)
	})

	r.Route("/defects", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableDefects))
		r.Get("/", h.ListDefects)
		r.Post("/", h.CreateDefect)
		r.Get("/{id}", h.GetDefect)
		r.Patch("/{id}", h.UpdateDefect)
		r.Delete("/{id}", h.DeleteDefect)
		r.Post("/{id}/fix", h.FixDefect)
		attachmentRoutes(r, h, model.ParentDefect)
	})

	r.Route("/claims", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableClaims))
		r.Get("/", h.ListClaims)
		r.Post("/", h.CreateClaim)
		r.Get("/{id}", h.GetClaim)
		r.Patch("/{id}", h.UpdateClaim)
		r.Delete("/{id}", h.DeleteClaim)
		attachmentRoutes(r, h, model.ParentClaim)
	})

	r.Route("/court-cases", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableCourtCases))
		r.Get("/", h.ListCourtCases)
		r.Get("/filter-options", h.CourtCaseFilterOptions)
		r.Post("/", h.CreateCourtCase)
		r.Get("/{id}", h.GetCourtCase)
		r.Patch("/{id}", h.UpdateCourtCase)
		r.Delete("/{id}", h.DeleteCourtCase)
		attachmentRoutes(r, h, model.ParentCourtCase)
	})

	r.Route("/letters", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableLetters))
		r.Get("/", h.ListLetters)
		r.Post("/", h.CreateLetter)
		r.Get("/{id}", h.GetLetter)
		r.Patch("/{id}", h.UpdateLetter)
		r.Delete("/{id}", h.DeleteLetter)
		attachmentRoutes(r, h, model.ParentLetter)
	})

	r.Route("/folders", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableFolders))
		r.Get("/", h.ListFolders)
		r.Post("/", h.CreateFolder)
		r.Get("/{id}", h.GetFolder)
		r.Patch("/{id}", h.UpdateFolder)
		r.Delete("/{id}", h.DeleteFolder)
		attachmentRoutes(r, h, model.ParentFolder)
	})

	r.Route("/attachments/{id}", func(r chi.Router) {
		r.Use(middleware.RequireWrite(rbac.TableAttachments))
		r.Get("/", h.GetAttachment)
		r.Get("/content", h.DownloadAttachment)
		r.Delete("/", h.DeleteAttachment)
	})

	r.Route("/preferences", func(r chi.Router) {
		r.Get("/", h.ListPreferences)
		r.Get("/{key}", h.GetPreference)
		r.Put("/{key}", h.PutPreference)
		r.Delete("/{key}", h.DeletePreference)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(rbac.RoleAdmin))
		r.Get("/users", h.ListUsers)
		r.Get("/users/{userID}", h.GetUser)
		r.Get("/users/{userID}/stats", h.GetUserStats)
		r.Patch("/users/{userID}", h.UpdateUser)
		r.Delete("/users/{userID}", h.DeleteUser)
		r.Get("/role-permissions", h.ListRolePermissions)
		r.Put("/role-permissions/{role}", h.UpdateRolePermission)
	})

	r.Get("/realtime", h.Realtime)
}

// attachmentRoutes — вложения записи. Загрузка требует права
// редактирования родительской таблицы (RequireWrite маршрута записи).
func attachmentRoutes(r chi.Router, h *APIHandler, parent model.AttachmentParent) {
	r.Get("/{id}/attachments", h.ListAttachments(parent))
	r.Post("/{id}/attachments", h.UploadAttachments(parent))
}
