package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/thornbury/seedling/internal/backup"
	"github.com/thornbury/seedling/internal/handler"
	"github.com/thornbury/seedling/internal/middleware"
	"github.com/thornbury/seedling/internal/progress"
	"github.com/thornbury/seedling/internal/push"
	"github.com/thornbury/seedling/internal/store"
	ws "github.com/thornbury/seedling/internal/websocket"
)

// Config carries the server's startup settings. Everything comes from the
// environment; there is no runtime settings store.
type Config struct {
	DefaultTimezone string
	AllowedOrigins  []string
	Backup          backup.Config
	Push            push.Config
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	childH         *handler.ChildHandler
	familyH        *handler.FamilyHandler
	taskH          *handler.TaskHandler
	progressH      *handler.ProgressHandler
	rewardH        *handler.RewardHandler
	privilegeH     *handler.PrivilegeHandler
	missionH       *handler.MissionHandler
	adjustmentH    *handler.AdjustmentHandler
	pushH          *handler.PushHandler
	backupH        *handler.BackupHandler
	sessionStore   *store.SessionStore
	rateLimiter    *middleware.RateLimiter
	backupManager  *backup.Manager
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyStore := store.NewFamilyStore(db)
	taskStore := store.NewTaskStore(db)
	ledger := store.NewLedger(db)
	streakStore := store.NewStreakRewardStore(db)
	rewardStore := store.NewRewardStore(db)
	privilegeStore := store.NewPrivilegeStore(db)
	missionStore := store.NewMissionStore(db)
	adjustmentStore := store.NewAdjustmentStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	engine := progress.New(ledger)

	// Push is optional; without VAPID keys the notifier becomes a no-op
	// and the vapid-key endpoint reports unconfigured.
	var pushSvc *push.Service
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
	}
	notifier := push.NewNotifier(pushSvc, pushStore, logger.With("component", "push"))

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, func(st backup.Status) {
		// Backup state changes go out over the dashboard socket. Single
		// family per deployment, so the default family is the audience.
		familyID, err := backupStore.DefaultFamilyID()
		if err != nil {
			return
		}
		hub.Broadcast(familyID, ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(st.State),
			Extra: map[string]any{
				"in_progress": st.InProgress,
				"error":       st.Error,
			},
		})
	}, logger.With("component", "backup"))

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, familyStore, sessionStore, cfg.DefaultTimezone, logger.With("component", "auth")),
		childH:         handler.NewChildHandler(familyStore, hub),
		familyH:        handler.NewFamilyHandler(familyStore, hub),
		taskH:          handler.NewTaskHandler(taskStore, familyStore, engine, hub, notifier, logger.With("component", "task")),
		progressH:      handler.NewProgressHandler(familyStore, taskStore, ledger, streakStore, engine, logger.With("component", "progress")),
		rewardH:        handler.NewRewardHandler(rewardStore, familyStore, engine, hub, notifier, logger.With("component", "reward")),
		privilegeH:     handler.NewPrivilegeHandler(privilegeStore, familyStore, engine, hub, notifier, logger.With("component", "privilege")),
		missionH:       handler.NewMissionHandler(missionStore, familyStore, hub),
		adjustmentH:    handler.NewAdjustmentHandler(adjustmentStore, familyStore, hub),
		pushH:          handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		backupH:        handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		sessionStore:   sessionStore,
		rateLimiter:    middleware.NewRateLimiter(),
		backupManager:  backupMgr,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager so main can run its schedule.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return middleware.RequestLogger(s.logger.With("component", "http"))(corsMiddleware(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Auth routes that require authentication
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("PUT /api/auth/password", s.authH.ChangePassword)
	mux.HandleFunc("GET /api/auth/parents", s.authH.ListParents)
	mux.HandleFunc("POST /api/auth/parents", s.authH.CreateParent)
	mux.HandleFunc("DELETE /api/auth/parents/{id}", s.authH.DeleteParent)

	// Family routes
	mux.HandleFunc("GET /api/family", s.familyH.Get)
	mux.HandleFunc("PUT /api/family", s.familyH.Update)
	mux.HandleFunc("PUT /api/family/reward-config", s.familyH.UpdateRewardConfig)

	// Child routes
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.HandleFunc("POST /api/children", s.childH.Create)
	mux.HandleFunc("PUT /api/children/{id}", s.childH.Update)
	mux.HandleFunc("DELETE /api/children/{id}", s.childH.Delete)
	mux.HandleFunc("PUT /api/children/sort", s.childH.UpdateSortOrder)

	// PIN routes; verify is rate limited against guessing
	mux.HandleFunc("POST /api/children/{id}/pin", s.childH.SetPIN)
	mux.HandleFunc("DELETE /api/children/{id}/pin", s.childH.ClearPIN)
	mux.HandleFunc("POST /api/children/{id}/pin/verify", s.rateLimitedHandler(s.childH.VerifyPIN))

	// Task routes
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("GET /api/assignments", s.taskH.ListAssignments)
	mux.HandleFunc("POST /api/tasks/{id}/assignments", s.taskH.Assign)
	mux.HandleFunc("DELETE /api/tasks/{id}/assignments/{childID}", s.taskH.Unassign)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/tasks/{id}/uncomplete", s.taskH.Uncomplete)

	// Progress routes
	mux.HandleFunc("GET /api/progress", s.progressH.FamilyProgress)
	mux.HandleFunc("GET /api/streak-rewards", s.progressH.FamilyStreakRewards)
	mux.HandleFunc("GET /api/children/{id}/tasks", s.taskH.ListForChild)
	mux.HandleFunc("GET /api/children/{id}/today", s.progressH.Today)
	mux.HandleFunc("GET /api/children/{id}/progress", s.progressH.Snapshot)
	mux.HandleFunc("GET /api/children/{id}/balance", s.progressH.Balance)
	mux.HandleFunc("GET /api/children/{id}/history", s.progressH.History)
	mux.HandleFunc("GET /api/children/{id}/streak-rewards", s.progressH.StreakRewards)

	// Reward routes
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("PUT /api/rewards/{id}", s.rewardH.Update)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.rewardH.Delete)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/children/{id}/redemptions", s.rewardH.Redemptions)
	mux.HandleFunc("DELETE /api/redemptions/{id}", s.rewardH.DeleteRedemption)

	// Privilege routes
	mux.HandleFunc("GET /api/privileges", s.privilegeH.List)
	mux.HandleFunc("POST /api/privileges", s.privilegeH.Create)
	mux.HandleFunc("PUT /api/privileges/{id}", s.privilegeH.Update)
	mux.HandleFunc("DELETE /api/privileges/{id}", s.privilegeH.Delete)
	mux.HandleFunc("POST /api/privileges/{id}/request", s.privilegeH.CreateRequest)
	mux.HandleFunc("GET /api/privilege-requests", s.privilegeH.ListRequests)
	mux.HandleFunc("POST /api/privilege-requests/{id}/decide", s.privilegeH.Decide)
	mux.HandleFunc("GET /api/children/{id}/privilege-requests", s.privilegeH.ChildRequests)

	// Mission routes
	mux.HandleFunc("GET /api/missions", s.missionH.List)
	mux.HandleFunc("POST /api/missions", s.missionH.Create)
	mux.HandleFunc("PUT /api/missions/{id}", s.missionH.Update)
	mux.HandleFunc("DELETE /api/missions/{id}", s.missionH.Delete)
	mux.HandleFunc("POST /api/missions/{id}/award", s.missionH.Award)
	mux.HandleFunc("GET /api/children/{id}/mission-awards", s.missionH.Awards)

	// Adjustment routes
	mux.HandleFunc("POST /api/adjustments", s.adjustmentH.Create)
	mux.HandleFunc("GET /api/children/{id}/adjustments", s.adjustmentH.ListByChild)

	// Push notification routes
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("GET /api/push/preferences", s.pushH.GetPreferences)
	mux.HandleFunc("PUT /api/push/preferences", s.pushH.UpdatePreferences)
	mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)

	// Backup routes
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups/run", s.backupH.RunNow)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.backupH.Restore)
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
