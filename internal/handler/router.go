package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/interviewprep/internal/metrics"
	"github.com/hitoshi/interviewprep/internal/middleware"
	"github.com/hitoshi/interviewprep/internal/validator"
)

const (
	rootPath   = "/"
	signInPath = "/sign-in"
)

// SessionService はルーターが必要とするセッション操作。session.Managerが満たす。
type SessionService interface {
	middleware.AuthChecker
	middleware.SessionClearer
	middleware.CurrentUserResolver
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	CORSAllowedOrigin string
	CSRF              middleware.CSRFConfig
	ConnectSources    []string

	// セッション
	Sessions SessionService
	Stores   middleware.StoreFactory

	// 認証
	AuthService AuthServiceInterface

	// 模擬面接
	InterviewService InterviewServiceInterface
	InterviewLister  InterviewLister

	// 画面
	Pages PageConfig

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (グループごと) CSRF / ガード / Session
//
// 画面テンプレートの解析に失敗した場合はエラーを返す。
func NewRouter(deps *RouterDeps) (http.Handler, error) {
	validate := validator.New()

	pageHandler, err := NewPageHandler(deps.InterviewLister, deps.Pages)
	if err != nil {
		return nil, err
	}
	authHandler := NewAuthHandler(deps.AuthService, deps.Stores, validate)
	interviewHandler := NewInterviewHandler(deps.InterviewService, validate)

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.ConnectSources...))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Handle("/static/*", Static())
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

	// --- 音声アシスタントから呼ばれるAPI（Cookieを使わない） ---
	r.Route("/api/vapi/generate", func(r chi.Router) {
		r.Get("/", interviewHandler.Ping)
		r.Post("/", interviewHandler.Generate)
	})

	// --- ブラウザから呼ばれるルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		// 保護領域: 未認証はサインイン画面へ
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewProtectedAreaGuard(deps.Sessions, deps.Stores, signInPath))
			r.Get(rootPath, pageHandler.Home)
		})

		// 公開領域: 認証済みはホームへ
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewPublicAreaGuard(deps.Sessions, deps.Sessions, deps.Stores, rootPath))
			r.Get(signInPath, pageHandler.SignIn)
			r.Get("/sign-up", pageHandler.SignUp)
		})

		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/sign-up", authHandler.SignUp)
			r.Post("/sign-in", authHandler.SignIn)
			r.Post("/sign-out", authHandler.SignOut)

			r.With(middleware.NewSessionMiddleware(deps.Sessions, deps.Stores)).Get("/me", authHandler.Me)
		})
	})

	return r, nil
}
