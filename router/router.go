package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sparkpad/config"
	"sparkpad/internal/ai"
	chatHandler "sparkpad/internal/chat"
	chatRepo "sparkpad/internal/chat/repository"
	chatService "sparkpad/internal/chat/service"
	docHandler "sparkpad/internal/document"
	docRepo "sparkpad/internal/document/repository"
	docService "sparkpad/internal/document/service"
	notifHandler "sparkpad/internal/notification"
	notifRepo "sparkpad/internal/notification/repository"
	notifService "sparkpad/internal/notification/service"
	projectHandler "sparkpad/internal/project"
	projectRepo "sparkpad/internal/project/repository"
	projectService "sparkpad/internal/project/service"
	researchHandler "sparkpad/internal/research"
	researchRepo "sparkpad/internal/research/repository"
	researchService "sparkpad/internal/research/service"
	userHandler "sparkpad/internal/user"
	userRepo "sparkpad/internal/user/repository"
	userService "sparkpad/internal/user/service"
	"sparkpad/middleware"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/httpx"
	"sparkpad/pkg/metrics"
	"sparkpad/pkg/token"
	"sparkpad/socket"
	"sparkpad/store"
)

func Setup(cfg *config.Config, st *store.Store, hub *socket.Hub, assistant *ai.Service) http.Handler {
	tokens := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	users := userRepo.NewUserRepository(st)
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(st), hub)
	projects := projectService.NewProjectService(projectRepo.NewProjectRepository(st), users, notifications, hub, st)
	chat := chatService.NewChatService(chatRepo.NewChatRepository(st), projects, users, notifications, assistant, hub)
	docs := docService.NewDocumentService(docRepo.NewDocumentRepository(st), projects, hub)
	research := researchService.NewResearchService(researchRepo.NewResearchRepository(st), projects, users, notifications, assistant, hub)

	uh := userHandler.NewUserHandler(userService.NewUserService(users, tokens))
	ph := projectHandler.NewProjectHandler(projects)
	ch := chatHandler.NewChatHandler(chat)
	dh := docHandler.NewDocumentHandler(docs)
	rh := researchHandler.NewResearchHandler(research)
	nh := notifHandler.NewNotificationHandler(notifications)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Unread-Count"},
		MaxAge:         300,
	}))
	r.Use(middleware.Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			httpx.Error(w, "health check", apperr.New(apperr.ErrUnavailable, "Civil Memory is unavailable"))
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{Registry: metrics.Registry}))

	auth := middleware.Auth(tokens)

	// WebSocket
	r.With(auth).Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, projects, w, r, middleware.UserID(r.Context()))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", uh.Register)
		r.Post("/auth/login", uh.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Get("/users/me", uh.Me)
			r.Put("/users/me", uh.UpdateMe)
			r.Get("/users", uh.Search)

			r.Get("/notifications", nh.List)
			r.Post("/notifications/read-all", nh.MarkAllRead)
			r.Post("/notifications/{notificationID}/read", nh.MarkRead)
			r.Delete("/notifications/{notificationID}", nh.Delete)

			r.Get("/projects", ph.GetProjects)
			r.Post("/projects", ph.CreateProject)
			r.Get("/projects/stats", ph.GetDashboard)

			r.Route("/projects/{projectID}", func(r chi.Router) {
				r.Get("/", ph.GetProject)
				r.Put("/", ph.UpdateProject)
				r.Delete("/", ph.DeleteProject)
				r.Get("/stats", ph.GetStats)

				r.Get("/members", ph.GetMembers)
				r.Post("/members", ph.AddMember)
				r.Delete("/members/{userID}", ph.RemoveMember)

				r.Get("/chat", ch.List)
				r.Post("/chat", ch.Post)
				r.Post("/chat/ai", ch.AskAI)
				r.Delete("/chat/{messageID}", ch.Delete)

				r.Get("/documents", dh.GetDocuments)
				r.Post("/documents", dh.CreateDocument)
				r.Get("/documents/{docID}", dh.GetDocument)
				r.Put("/documents/{docID}", dh.UpdateTitle)
				r.Delete("/documents/{docID}", dh.DeleteDocument)
				r.Post("/documents/{docID}/rows", dh.InsertRow)
				r.Put("/documents/{docID}/rows/{rowID}", dh.UpdateRow)
				r.Delete("/documents/{docID}/rows/{rowID}", dh.DeleteRow)
				r.Post("/documents/{docID}/rows/{rowID}/move", dh.MoveRow)

				r.Get("/research", rh.List)
				r.Post("/research", rh.Create)
				r.Get("/research/tags", rh.Tags)
				r.Get("/research/{itemID}", rh.Get)
				r.Put("/research/{itemID}", rh.Update)
				r.Delete("/research/{itemID}", rh.Delete)
				r.Post("/research/{itemID}/tags", rh.AddTag)
				r.Delete("/research/{itemID}/tags/{tag}", rh.RemoveTag)
				r.Post("/research/{itemID}/comments", rh.AddComment)
				r.Delete("/research/{itemID}/comments/{commentID}", rh.DeleteComment)
				r.Post("/research/{itemID}/summarize", rh.Summarize)
			})
		})
	})

	return r
}
