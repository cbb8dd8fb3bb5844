package httpserver

import (
	"context"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "teamhub/docs"
	"teamhub/internal/security"
	"teamhub/internal/service"
)

// Services bundles the use-cases exposed over REST.
type Services struct {
	Sessions      SessionResolver
	Auth          *service.AuthService
	Users         *service.UserService
	Friends       *service.FriendService
	Teams         *service.TeamService
	Invites       *service.InviteService
	Chat          *service.ChatService
	Notifications *service.NotificationService
	Calendar      *service.CalendarService
}

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	AppName     string
	CORSOrigins []string
	DB          Pinger
	Tokens      *security.TokenService
	// Sockets serves /api/ws/{domain}.
	Sockets http.Handler
	Log     *logrus.Entry
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(opts Options, svc Services) http.Handler {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "http")

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": opts.AppName, "docs": "/docs/index.html"})
	})
	r.Get("/health", handleHealth(opts.DB))

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		if opts.Sockets != nil {
			r.Method(http.MethodGet, "/ws/{domain}", opts.Sockets)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", handleRegister(svc.Auth))
				r.Post("/login", handleLogin(svc.Auth))
			})

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(opts.Tokens, svc.Sessions))

				r.Post("/auth/logout", handleLogout(svc.Auth))
				r.Get("/auth/me", handleMe(svc.Users))

				r.Route("/users", func(r chi.Router) {
					r.Get("/", handleListUsers(svc.Users))
					r.Post("/me/deactivate", handleDeactivateMe(svc.Users))
					r.Delete("/{userID}", handleDeleteUser(svc.Users))
				})

				r.Route("/friends", func(r chi.Router) {
					r.Get("/", handleFriendOverview(svc.Friends))
					r.Delete("/{userID}", handleRemoveFriend(svc.Friends))
					r.Post("/requests", handleInviteFriend(svc.Friends))
					r.Post("/requests/{requestID}/accept", handleFriendTransition(svc.Friends.Accept))
					r.Post("/requests/{requestID}/decline", handleFriendTransition(svc.Friends.Decline))
					r.Post("/requests/{requestID}/cancel", handleFriendTransition(svc.Friends.Cancel))
					r.Delete("/requests/{requestID}", handleDeleteDeclinedFriend(svc.Friends))
					r.Post("/blocks", handleBlock(svc.Friends))
					r.Delete("/blocks/{userID}", handleUnblock(svc.Friends))
				})

				r.Route("/teams", func(r chi.Router) {
					r.Get("/", handleListTeams(svc.Teams))
					r.Post("/", handleCreateTeam(svc.Teams))
					r.Route("/{teamID}", func(r chi.Router) {
						r.Get("/", handleGetTeam(svc.Teams))
						r.Delete("/", handleDeleteTeam(svc.Teams))
						r.Get("/members", handleListMembers(svc.Teams))
						r.Patch("/members/{userID}", handleUpdateMemberRole(svc.Teams))
						r.Delete("/members/{userID}", handleRemoveMember(svc.Teams))
						r.Get("/invites", handleListTeamInvites(svc.Invites))
						r.Post("/invites", handleCreateInvite(svc.Invites))
						r.Post("/threads", handleCreateTeamThread(svc.Chat))
					})
				})

				r.Route("/team-invites", func(r chi.Router) {
					r.Get("/", handleListMyInvites(svc.Invites))
					r.Post("/{inviteID}/accept", handleAcceptInvite(svc.Invites))
					r.Post("/{inviteID}/decline", handleDeclineInvite(svc.Invites))
					r.Post("/{inviteID}/cancel", handleCancelInvite(svc.Invites))
					r.Delete("/{inviteID}", handleDeleteInvite(svc.Invites))
				})

				r.Route("/chat", func(r chi.Router) {
					r.Get("/threads", handleListThreads(svc.Chat))
					r.Post("/threads/dm", handleCreateDM(svc.Chat))
					r.Post("/threads/ai", handleCreateAIThread(svc.Chat))
					r.Get("/threads/{threadID}", handleGetThread(svc.Chat))
					r.Get("/threads/{threadID}/messages", handleListMessages(svc.Chat))
					r.Post("/threads/{threadID}/messages", handleSendMessage(svc.Chat))
					r.Get("/llm-keys", handleListLLMKeys(svc.Chat))
					r.Put("/llm-keys/{provider}", handleSetLLMKey(svc.Chat))
					r.Delete("/llm-keys/{provider}", handleDeleteLLMKey(svc.Chat))
				})

				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", handleListNotifications(svc.Notifications))
					r.Get("/unread-count", handleUnreadCount(svc.Notifications))
					r.Post("/read", handleMarkRead(svc.Notifications))
				})

				r.Route("/calendar/events", func(r chi.Router) {
					r.Get("/", handleListEvents(svc.Calendar))
					r.Post("/", handleCreateEvent(svc.Calendar))
					r.Put("/{eventID}", handleUpdateEvent(svc.Calendar))
					r.Post("/{eventID}/cancel", handleCancelEvent(svc.Calendar))
					r.Post("/{eventID}/rsvp", handleRSVP(svc.Calendar))
				})
			})
		})
	})

	return r
}

// @Summary      Health check
// @Tags         meta
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func handleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logFrom(r).WithError(err).Warn("database ping failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}
