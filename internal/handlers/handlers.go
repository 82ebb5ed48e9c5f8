package handlers

import (
	"PassKeeper/internal/config"
	"PassKeeper/internal/middleware"
	"PassKeeper/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	userService *service.UserService,
	vaultService *service.VaultService,
	shareService *service.ShareService,
	messageService *service.MessageService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	authHandler := NewAuthHandler(userService, vaultService, logger, config)
	credHandler := NewCredentialHandler(vaultService, logger)
	groupHandler := NewGroupHandler(shareService, vaultService, logger)
	messageHandler := NewMessageHandler(messageService, logger)

	// Auth routes
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/questions", authHandler.Questions)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
	})

	// Всё ниже только для вошедших пользователей
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Delete("/api/user", authHandler.DeleteAccount)
		r.Get("/api/users/search", authHandler.SearchUsers)

		r.Route("/api/passwords", func(r chi.Router) {
			r.Post("/", credHandler.Create)
			r.Get("/", credHandler.List)
			r.Get("/recent", credHandler.Recent)
			r.Get("/applications", credHandler.Applications)
			r.Get("/applications/{name}", credHandler.ByApplication)
			r.Get("/application-types", credHandler.ApplicationTypes)
			r.Get("/{id}", credHandler.Get)
			r.Put("/{id}", credHandler.Update)
			r.Delete("/{id}", credHandler.Delete)
			r.Get("/{id}/history", credHandler.History)
		})

		r.Get("/api/security/analysis", credHandler.Analysis)
		r.Get("/api/security/stats", credHandler.Stats)

		r.Route("/api/groups", func(r chi.Router) {
			r.Get("/", groupHandler.List)
			r.Get("/list", groupHandler.List)
			r.Post("/create", groupHandler.Create)
			r.Put("/rename", groupHandler.Rename)
			r.Post("/share", groupHandler.Share)
			r.Post("/share-all", groupHandler.ShareAll)
			r.Post("/unshare", groupHandler.Unshare)
			r.Get("/shared/passwords", groupHandler.SharedWithMe)
			r.Get("/shared/passwords/{id}", groupHandler.SharedPassword)
			r.Delete("/{group}", groupHandler.Delete)
			r.Get("/{group}/members", groupHandler.Members)
			r.Delete("/{group}/members/{userID}", groupHandler.RemoveMember)
			r.Get("/{group}/shares", groupHandler.GroupShares)
			r.Get("/{group}/shared/passwords", groupHandler.GroupShares)
		})

		r.Route("/api/messages", func(r chi.Router) {
			r.Get("/", messageHandler.Inbox)
			r.Get("/count", messageHandler.Count)
			r.Post("/trusted-user-request", messageHandler.TrustedUserRequest)
			r.Post("/group-invitation", messageHandler.GroupInvitation)
			r.Post("/{id}/accept", messageHandler.Accept)
			r.Post("/{id}/reject", messageHandler.Reject)
		})
	})

	return &Handler{Router: r}
}
