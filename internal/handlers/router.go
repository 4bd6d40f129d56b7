package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/middleware"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

type Options struct {
	ClientURL      string
	SecureCookies  bool
	MaxUploadMB    int64
	DefaultLimit   int64
	MaxBans        int
	LocalUploadDir string
}

type Deps struct {
	Stores *store.Collections
	Tokens *services.TokenIssuer
	Photos PhotoStore
	Logger *zap.Logger
	Options
}

// API holds the handlers behind the router, exposed for tests and tooling.
type API struct {
	Perms          *models.Permissions
	Auth           *AuthHandler
	Experiences    *ExperienceHandler
	Users          *UserHandler
	Flags          *FlagHandler
	Comments       *CommentHandler
	Reactions      *ReactionHandler
	Bans           *BanHandler
	Configurations *ConfigurationHandler

	BanService    *services.BanService
	ConfigService *services.ConfigurationService

	deps Deps
}

func NewAPI(d Deps) *API {
	if d.Logger == nil {
		d.Logger = zap.L()
	}
	s := d.Stores
	perms := models.NewPermissions()
	reactions := services.NewReactionService(s.Reactions)
	bans := services.NewBanService(s.Bans, d.MaxBans)
	configs := services.NewConfigurationService(s.Configurations, s.Tx)

	experiences := NewExperienceHandler(s.Experiences, s.Comments, reactions, d.Photos, d.MaxUploadMB, d.DefaultLimit)
	return &API{
		Perms:          perms,
		Auth:           NewAuthHandler(services.NewAuthService(s.Users), d.Tokens, d.ClientURL, d.SecureCookies),
		Experiences:    experiences,
		Users:          NewUserHandler(s.Users, perms, experiences, s.Comments, reactions, d.DefaultLimit),
		Flags:          NewFlagHandler(s.Flags, d.DefaultLimit),
		Comments:       NewCommentHandler(s.Comments, s.Experiences, d.DefaultLimit),
		Reactions:      NewReactionHandler(reactions, s.Reactions, s.Experiences),
		Bans:           NewBanHandler(bans, s.Users, perms),
		Configurations: NewConfigurationHandler(configs),
		BanService:     bans,
		ConfigService:  configs,
		deps:           d,
	}
}

// NewRouter builds the HTTP surface.
func NewRouter(d Deps) http.Handler {
	return NewAPI(d).Routes()
}

func (api *API) Routes() http.Handler {
	d := api.deps
	s := d.Stores
	perms := api.Perms

	authenticated := middleware.IsAuthenticated
	notBanned := middleware.CheckBanStatus(api.BanService)
	moderator := middleware.IsModerator(perms)
	admin := middleware.RequirePermission(perms, models.PermManageConfiguration)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(d.ClientURL),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Authenticate(d.Tokens, s.Users))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", api.Auth.BeginGoogle)
		r.Get("/google/callback", api.Auth.GoogleCallback)
		r.Get("/user", api.Auth.CurrentUser)
		r.Post("/logout", api.Auth.Logout)
	})

	r.Route("/experiences", func(r chi.Router) {
		r.Get("/", api.Experiences.Read)
		r.With(authenticated, notBanned).Post("/", api.Experiences.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", api.Experiences.ReadByID)

			owned := middleware.Authorize(s.Experiences, "id", middleware.OwnerOrModerator[models.Experience](perms))
			r.With(authenticated, notBanned, owned).Patch("/", api.Experiences.Update)
			r.With(authenticated, notBanned, owned).Delete("/", api.Experiences.Delete)

			r.Route("/reactions", func(r chi.Router) {
				r.Get("/", api.Reactions.List)
				r.With(authenticated, notBanned).Put("/", api.Reactions.Add)
				r.With(authenticated, notBanned).Put("/remove", api.Reactions.Remove)

				ownReaction := middleware.Authorize(s.Reactions, "reactionId", middleware.OwnerOrModerator[models.Reaction](perms))
				r.With(authenticated, notBanned, ownReaction).Delete("/{reactionId}", api.Reactions.Delete)
			})
		})
	})

	r.Route("/comments", func(r chi.Router) {
		r.Get("/", api.Comments.Read)
		r.With(authenticated, notBanned).Post("/", api.Comments.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", api.Comments.ReadByID)

			owned := middleware.Authorize(s.Comments, "id", middleware.OwnerOrModerator[models.Comment](perms))
			r.With(authenticated, notBanned, owned).Patch("/", api.Comments.Update)
			r.With(authenticated, notBanned, owned).Delete("/", api.Comments.Delete)
		})
	})

	r.Route("/flags", func(r chi.Router) {
		r.With(authenticated, notBanned).Post("/", api.Flags.Create)
		r.Group(func(r chi.Router) {
			r.Use(authenticated, moderator)
			r.Get("/", api.Flags.Read)
			r.Get("/{id}", api.Flags.ReadByID)
			r.Patch("/{id}", api.Flags.Update)
			r.Delete("/{id}", api.Flags.Delete)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.With(authenticated, moderator).Post("/", api.Users.Create)
		r.With(authenticated, moderator).Get("/", api.Users.Read)

		r.Route("/{id}", func(r chi.Router) {
			self := middleware.Authorize(s.Users, "id", SelfOrModerator(perms))
			r.With(authenticated, self).Get("/", api.Users.ReadByID)
			r.With(authenticated, self).Patch("/", api.Users.Update)
			r.With(authenticated, self).Delete("/", api.Users.Delete)

			r.Route("/bans", func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/", api.Bans.Get)
				r.With(moderator).Post("/", api.Bans.Create)
				r.With(moderator).Delete("/", api.Bans.Delete)
			})
		})
	})

	r.Route("/configurations", func(r chi.Router) {
		r.Use(authenticated, admin)
		r.Put("/", api.Configurations.Set)
		r.Get("/{key}", api.Configurations.Get)
	})

	if d.LocalUploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.LocalUploadDir))))
	}

	return r
}

func allowedOrigins(clientURL string) []string {
	if clientURL == "" {
		return []string{"*"}
	}
	return []string{clientURL}
}
