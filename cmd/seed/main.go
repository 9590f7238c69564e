// 命令行工具：向数据库写入演示数据，方便本地联调
package main

import (
	"context"
	"log"

	"evoting-backend/config"
	"evoting-backend/database"
	"evoting-backend/models"
	"evoting-backend/repository"
)

func main() {
	cfg := config.Load()

	if err := database.InitDB(cfg); err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}
	defer database.CloseDB()

	ctx := context.Background()
	pollRepo := repository.NewPollRepository(database.DB)

	polls := []struct {
		title       string
		description string
		candidates  []models.Candidate
	}{
		{
			title:       "2026年度社区理事会选举",
			description: "选出下一届社区理事会成员",
			candidates: []models.Candidate{
				{Name: "Alice Chen", Party: "Progress"},
				{Name: "Bob Lin", Party: "Unity"},
				{Name: "Carol Wu", Party: "Independent"},
			},
		},
		{
			title:       "园区食堂菜单投票",
			description: "下月食堂新增菜品票选",
			candidates: []models.Candidate{
				{Name: "麻辣香锅", Party: ""},
				{Name: "日式咖喱", Party: ""},
			},
		},
	}

	for _, p := range polls {
		poll := &models.Poll{
			Title:       p.title,
			Description: p.description,
			IsActive:    true,
		}
		if err := pollRepo.CreatePoll(ctx, poll); err != nil {
			log.Fatalf("创建演示投票失败: %v", err)
		}

		for i := range p.candidates {
			candidate := p.candidates[i]
			candidate.PollID = poll.ID
			if err := pollRepo.AddCandidate(ctx, &candidate); err != nil {
				log.Fatalf("创建演示候选人失败: %v", err)
			}
		}

		log.Printf("演示投票已创建: ID=%d, Title=%s", poll.ID, poll.Title)
	}
}
