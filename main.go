package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evoting-backend/auth"
	"evoting-backend/cache"
	"evoting-backend/config"
	"evoting-backend/database"
	"evoting-backend/handlers"
	"evoting-backend/models"
	"evoting-backend/mq"
	"evoting-backend/repository"
	"evoting-backend/routes"
	"evoting-backend/service"
	"evoting-backend/uploader"
	"evoting-backend/websocket"
)

func main() {
	cfg := config.Load()

	// 初始化数据库连接并迁移表结构
	if err := database.InitDB(cfg); err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}
	log.Println("数据库连接初始化成功")

	// 初始化Redis缓存与分布式锁（Redis不可用时降级为本地模式）
	redisCache := cache.NewCache(cfg)
	locks := cache.NewLockService(redisCache)

	// 初始化消息队列适配器（按配置选择RocketMQ或Redis MQ）
	mqAdapter := mq.NewAdapter(cfg, redisCache)

	// 仓储层
	userRepo := repository.NewUserRepository(database.DB)
	pollRepo := repository.NewPollRepository(database.DB)
	voteRepo := repository.NewVoteRepository(database.DB)

	// 服务层
	tokens := auth.NewTokenService(cfg.JWTSecret)
	authService := service.NewAuthService(userRepo, tokens)
	pollService := service.NewPollService(pollRepo, voteRepo, redisCache, mqAdapter)
	voteService := service.NewVoteService(userRepo, pollRepo, voteRepo, locks, redisCache, mqAdapter)

	// WebSocket推送中心
	hub := websocket.NewHub()
	go hub.Run()

	// 消息队列消费端：收到投票更新后重算计票并广播给该活动的订阅者
	// 投票已不存在说明活动被删除，断开该活动的全部订阅
	err := mqAdapter.RegisterHandler(func(pollID uint) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		results, err := pollService.GetPollResults(ctx, pollID)
		if err != nil {
			if errors.Is(err, service.ErrPollNotFound) {
				hub.ClosePoll(pollID)
				return nil
			}
			log.Printf("获取投票 %d 的计票结果失败: %v", pollID, err)
			return err
		}

		hub.BroadcastToPoll(pollID, &models.WebSocketMessage{
			Type:    models.MessageTypeVoteUpdate,
			PollID:  pollID,
			Payload: results,
		})
		return nil
	})
	if err != nil {
		log.Printf("警告: 注册消息处理函数失败: %v", err)
	} else {
		log.Printf("消息队列就绪: mode=%s", mqAdapter.Mode())
	}

	// 确保管理员账号存在
	if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Printf("警告: 初始化管理员账号失败: %v", err)
	}

	uploads := uploader.NewCloudinaryUploader(cfg)

	// 设置路由
	router := routes.SetupRouter(&routes.Deps{
		Auth:    handlers.NewAuthHandler(authService),
		Polls:   handlers.NewPollHandler(pollService, uploads),
		Votes:   handlers.NewVoteHandler(voteService),
		Profile: handlers.NewProfileHandler(authService, uploads),
		WS:      websocket.NewHandler(hub, pollService),
		Tokens:  tokens,
	})

	// 启动服务器
	srv := routes.StartServer(router, cfg.ServerPort)
	log.Println("服务器启动成功")

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 不接受新请求并等待现有请求完成
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务器强制关闭: %v", err)
	}

	database.CloseDB()
	redisCache.Close()
	mqAdapter.Close()

	log.Println("服务器优雅关闭")
}
