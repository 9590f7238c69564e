package routes

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"evoting-backend/auth"
	"evoting-backend/handlers"
	"evoting-backend/websocket"
)

// Server 是HTTP服务器的封装
type Server struct {
	*http.Server
}

// Deps 路由依赖的处理器集合
type Deps struct {
	Auth    *handlers.AuthHandler
	Polls   *handlers.PollHandler
	Votes   *handlers.VoteHandler
	Profile *handlers.ProfileHandler
	WS      *websocket.Handler
	Tokens  *auth.TokenService
}

// SetupRouter 设置和配置Gin路由
func SetupRouter(d *Deps) *gin.Engine {
	router := gin.Default()

	// 配置CORS中间件
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // 生产环境中应限制为前端域名
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		// 全局API限流中间件
		api.Use(handlers.RateLimitMiddleware())

		// 健康检查端点
		api.GET("/health", handlers.HealthCheck)
		api.GET("/status", handlers.SystemStatus)

		// 注册登录端点
		api.POST("/register", d.Auth.Register)
		api.POST("/login", d.Auth.Login)
		api.POST("/token", d.Auth.Token)

		// 公开的投票查询端点
		polls := api.Group("/polls")
		{
			polls.GET("", d.Polls.GetPolls)
			polls.GET("/:id", d.Polls.GetPoll)
			polls.GET("/:id/candidates", d.Polls.GetCandidates)

			// 实时结果推送（WebSocket）
			polls.GET("/:id/ws", d.WS.HandleWebSocketConnection)
		}

		// 需要认证的端点
		authed := api.Group("")
		authed.Use(handlers.AuthRequired(d.Tokens))
		{
			authed.POST("/polls/:id/vote", d.Votes.SubmitVote)
			authed.GET("/voting_history", d.Votes.VotingHistory)
			authed.POST("/profile/picture", d.Profile.UploadProfilePicture)
		}

		// 管理员端点
		admin := api.Group("/admin")
		admin.Use(handlers.AuthRequired(d.Tokens), handlers.AdminRequired())
		{
			admin.POST("/polls", d.Polls.CreatePoll)
			admin.PUT("/polls/:id", d.Polls.UpdatePoll)
			admin.DELETE("/polls/:id", d.Polls.DeletePoll)
			admin.POST("/polls/:id/candidates", d.Polls.AddCandidate)
			admin.DELETE("/polls/:id/candidates/:candidateId", d.Polls.RemoveCandidate)
			admin.GET("/polls/:id/votes", d.Polls.GetPollVotes)
			admin.POST("/polls/:id/image", d.Polls.UploadPollImage)
		}
	}

	return router
}

// StartServer 启动HTTP服务器
func StartServer(router *gin.Engine, port string) *Server {
	addr := ":" + port

	srv := &Server{
		&http.Server{
			Addr:    addr,
			Handler: router,
		},
	}

	// 在单独的goroutine中启动服务器
	go func() {
		log.Printf("服务器启动在 %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	return srv
}
