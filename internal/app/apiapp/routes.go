package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ojodaltonico/bot-moderador/internal/config"
	pgrepo "github.com/ojodaltonico/bot-moderador/internal/repo/postgres"
	appealsvc "github.com/ojodaltonico/bot-moderador/internal/services/appeals"
	chatsvc "github.com/ojodaltonico/bot-moderador/internal/services/chat"
	identitysvc "github.com/ojodaltonico/bot-moderador/internal/services/identity"
	ingestsvc "github.com/ojodaltonico/bot-moderador/internal/services/ingest"
	workflowsvc "github.com/ojodaltonico/bot-moderador/internal/services/workflow"
	"github.com/ojodaltonico/bot-moderador/internal/transport/http/handlers"
)

type Dependencies struct {
	IngestService   *ingestsvc.Service
	ChatService     *chatsvc.Service
	WorkflowService *workflowsvc.Service
	IdentityService *identitysvc.Service
	AppealService   *appealsvc.Service
	UserRepo        *pgrepo.UserRepo
	ActionRepo      *pgrepo.ActionRepo
	ModeratorRepo   *pgrepo.ModeratorRepo
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	ingestHandler := handlers.NewIngestHandler(deps.IngestService)
	chatHandler := handlers.NewChatHandler(deps.ChatService)
	casesHandler := handlers.NewCasesHandler(deps.WorkflowService, deps.IdentityService, deps.ActionRepo)
	usersHandler := handlers.NewUsersHandler(deps.UserRepo, deps.ActionRepo)
	appealsHandler := handlers.NewAppealsHandler(deps.AppealService, deps.UserRepo)
	adminHandler := handlers.NewAdminHandler(deps.IdentityService, deps.ModeratorRepo)

	r.Get("/healthz", healthHandler.Get)

	r.Post("/messages", ingestHandler.Handle)
	r.Post("/chat/inbound", chatHandler.Inbound)

	r.Route("/cases", func(r chi.Router) {
		r.Post("/next", casesHandler.Next)
		r.Post("/{id}/decision", casesHandler.Decide)
		r.Get("/{id}", casesHandler.History)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/{phone}/strikes", usersHandler.Strikes)
		r.Get("/{phone}/history", usersHandler.History)
	})

	r.Post("/appeals", appealsHandler.Create)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/moderators", adminHandler.SetModerator)
		r.Get("/moderators", adminHandler.ListModerators)
	})
}
