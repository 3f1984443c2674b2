package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	classhandler "ecosort_backend/internal/feature/classification/transport/handler"
	sessionhandler "ecosort_backend/internal/feature/session/transport/handler"
	platformhandler "ecosort_backend/internal/platform/http/handler"
	jwtmw "ecosort_backend/internal/platform/jwt"
)

// Options はルーター全体に関わる設定です。
type Options struct {
	JWTSecret        string   // 空なら /v1 は認証不要
	CORSAllowOrigins []string // 空ならCORSを設定しない
	Checkers         map[string]platformhandler.Checker
}

func NewRouter(classify *classhandler.ClassifyHandler, session *sessionhandler.SessionHandler, opts Options) *gin.Engine {
	r := gin.Default()

	if len(opts.CORSAllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSAllowOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Authorization", "Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	// 認証不要
	// 導通確認用
	r.GET("/healthz", platformhandler.Health)
	r.HEAD("/healthz", platformhandler.Health)
	r.GET("/readyz", platformhandler.Ready(opts.Checkers))

	v1 := r.Group("/v1")
	// JWT_SECRET が設定されている場合のみ
	// → リクエストヘッダーに JWT が必要になる
	if opts.JWTSecret != "" {
		v1.Use(jwtmw.AuthRequired(opts.JWTSecret))
	}
	{
		v1.GET("/categories", classify.Categories)
		v1.POST("/classify", classify.Classify)
		v1.GET("/history", classify.History)

		s := v1.Group("/sessions")
		s.POST("", session.Create)
		s.GET("/:id", session.Get)
		s.DELETE("/:id", session.Delete)
		s.GET("/:id/image", session.Image)
		s.POST("/:id/upload", session.Upload)
		s.POST("/:id/live/start", session.StartLive)
		s.POST("/:id/live/stop", session.StopLive)
		s.POST("/:id/capture", session.Capture)
		s.POST("/:id/reset", session.Reset)
		s.POST("/:id/guide", session.Guide)
	}

	return r
}
