package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tubehub/internal/metrics"
	"github.com/hitoshi/tubehub/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス公開・記録用
	MetricsGatherer prometheus.Gatherer
	MetricsRecorder middleware.HTTPMetricsRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィール
	UserService UserServiceInterface

	// チャンネル・購読グラフ
	ChannelService ChannelServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → [Auth → RateLimit(General)]
//
// 登録・ログイン・トークン再発行と/health、/metricsは認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.MetricsRecorder))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	channelHandler := NewChannelHandler(deps.ChannelService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		// ログインはIP単位の試行レート制限を追加
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/refresh-token", authHandler.RefreshToken)

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Auth → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			// セッション管理
			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)

			// プロフィール
			r.Get("/current-user", userHandler.CurrentUser)
			r.Patch("/update-account", userHandler.UpdateAccount)
			r.Patch("/update-avatar", userHandler.UpdateAvatar)
			r.Patch("/update-cover-image", userHandler.UpdateCoverImage)

			// チャンネルと視聴履歴
			r.Get("/c/{username}", channelHandler.GetChannelProfile)
			r.Get("/history", channelHandler.GetWatchHistory)
			r.Post("/history/{videoId}", channelHandler.RecordView)
		})
	})

	// 購読管理
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/v1/subscriptions/{channelId}", func(r chi.Router) {
			r.Post("/", channelHandler.Subscribe)
			r.Delete("/", channelHandler.Unsubscribe)
		})
	})

	return r
}
