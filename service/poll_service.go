package service

import (
	"context"
	"errors"
	"log"

	"evoting-backend/cache"
	"evoting-backend/models"
	"evoting-backend/repository"
)

// PollService 投票活动管理服务接口
type PollService interface {
	// 投票活动管理
	CreatePoll(ctx context.Context, input *models.CreatePollInput) (*models.Poll, error)
	GetPollByID(ctx context.Context, id uint) (*models.Poll, error)
	ListPolls(ctx context.Context) ([]models.Poll, error)
	UpdatePoll(ctx context.Context, id uint, input *models.UpdatePollInput) (*models.Poll, error)
	DeletePoll(ctx context.Context, id uint) error
	SetPollImage(ctx context.Context, id uint, url string) error
	PollExists(ctx context.Context, pollID uint) (bool, error)

	// 候选人管理
	AddCandidate(ctx context.Context, pollID uint, input *models.AddCandidateInput) (*models.Candidate, error)
	RemoveCandidate(ctx context.Context, pollID, candidateID uint) error
	GetCandidates(ctx context.Context, pollID uint) (*models.Poll, error)

	// 计票
	GetPollResults(ctx context.Context, pollID uint) (*models.PollResults, error)
}

// PollServiceImpl 投票活动管理服务实现
type PollServiceImpl struct {
	pollRepo  repository.PollRepository
	voteRepo  repository.VoteRepository
	cache     *cache.Cache
	publisher ResultPublisher
}

// NewPollService 创建投票活动服务
func NewPollService(pollRepo repository.PollRepository, voteRepo repository.VoteRepository, c *cache.Cache, publisher ResultPublisher) PollService {
	return &PollServiceImpl{
		pollRepo:  pollRepo,
		voteRepo:  voteRepo,
		cache:     c,
		publisher: publisher,
	}
}

// CreatePoll 创建投票活动，候选人由后续管理操作追加
func (s *PollServiceImpl) CreatePoll(ctx context.Context, input *models.CreatePollInput) (*models.Poll, error) {
	poll := &models.Poll{
		Title:       input.Title,
		Description: input.Description,
		IsActive:    true,
		Candidates:  []models.Candidate{},
	}
	if input.IsActive != nil {
		poll.IsActive = *input.IsActive
	}

	if err := s.pollRepo.CreatePoll(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// GetPollByID 获取投票活动详情
func (s *PollServiceImpl) GetPollByID(ctx context.Context, id uint) (*models.Poll, error) {
	poll, err := s.pollRepo.GetPollByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, err
	}
	return poll, nil
}

// ListPolls 获取投票活动列表
func (s *PollServiceImpl) ListPolls(ctx context.Context) ([]models.Poll, error) {
	return s.pollRepo.ListPolls(ctx)
}

// UpdatePoll 更新投票活动字段
func (s *PollServiceImpl) UpdatePoll(ctx context.Context, id uint, input *models.UpdatePollInput) (*models.Poll, error) {
	updates := make(map[string]interface{})
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := s.pollRepo.UpdatePoll(ctx, id, updates); err != nil {
			if errors.Is(err, repository.ErrPollNotFound) {
				return nil, ErrPollNotFound
			}
			return nil, err
		}
		s.cache.InvalidatePollResults(ctx, id)
	}

	return s.GetPollByID(ctx, id)
}

// DeletePoll 删除投票活动，级联删除候选人和投票记录
// 删除后发布一次最终更新，消费端发现投票不存在时断开其全部订阅
func (s *PollServiceImpl) DeletePoll(ctx context.Context, id uint) error {
	if err := s.pollRepo.DeletePoll(ctx, id); err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return ErrPollNotFound
		}
		return err
	}
	s.cache.InvalidatePollResults(ctx, id)
	s.publisher.PublishVoteUpdate(id)
	return nil
}

// SetPollImage 更新投票活动图片URL
func (s *PollServiceImpl) SetPollImage(ctx context.Context, id uint, url string) error {
	err := s.pollRepo.SetPollImage(ctx, id, url)
	if errors.Is(err, repository.ErrPollNotFound) {
		return ErrPollNotFound
	}
	return err
}

// PollExists 校验投票活动是否存在，供WebSocket订阅前检查
func (s *PollServiceImpl) PollExists(ctx context.Context, pollID uint) (bool, error) {
	_, err := s.pollRepo.GetPollByID(ctx, pollID)
	if errors.Is(err, repository.ErrPollNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddCandidate 向投票活动追加候选人，顺序即插入顺序
func (s *PollServiceImpl) AddCandidate(ctx context.Context, pollID uint, input *models.AddCandidateInput) (*models.Candidate, error) {
	if _, err := s.GetPollByID(ctx, pollID); err != nil {
		return nil, err
	}

	candidate := &models.Candidate{
		PollID: pollID,
		Name:   input.Name,
		Party:  input.Party,
	}
	if err := s.pollRepo.AddCandidate(ctx, candidate); err != nil {
		return nil, err
	}

	s.cache.InvalidatePollResults(ctx, pollID)
	return candidate, nil
}

// RemoveCandidate 从投票活动中移除候选人
// 已投出的票不回收，属于已知的允许不一致
func (s *PollServiceImpl) RemoveCandidate(ctx context.Context, pollID, candidateID uint) error {
	err := s.pollRepo.RemoveCandidate(ctx, pollID, candidateID)
	if err != nil {
		if errors.Is(err, repository.ErrCandidateNotFound) {
			return ErrCandidateNotFound
		}
		return err
	}

	s.cache.InvalidatePollResults(ctx, pollID)
	return nil
}

// GetCandidates 获取投票活动及其候选人列表
func (s *PollServiceImpl) GetCandidates(ctx context.Context, pollID uint) (*models.Poll, error) {
	return s.GetPollByID(ctx, pollID)
}

// GetPollResults 计算投票活动的实时计票结果
// 每个在列候选人都出现在结果中，没有票的补零；
// 缓存命中时直接返回快照，投票提交路径会主动失效缓存
func (s *PollServiceImpl) GetPollResults(ctx context.Context, pollID uint) (*models.PollResults, error) {
	if cached, err := s.cache.GetPollResults(ctx, pollID); err == nil {
		return cached, nil
	}

	poll, err := s.GetPollByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	counts, err := s.voteRepo.CountVotesByCandidate(ctx, pollID)
	if err != nil {
		return nil, err
	}

	results := &models.PollResults{
		PollID:   poll.ID,
		Title:    poll.Title,
		IsActive: poll.IsActive,
		Tally:    make([]models.CandidateTally, 0, len(poll.Candidates)),
	}

	for _, c := range poll.Candidates {
		votes := counts[c.ID]
		results.TotalVotes += votes
		results.Tally = append(results.Tally, models.CandidateTally{
			CandidateID: c.ID,
			Name:        c.Name,
			Party:       c.Party,
			Votes:       votes,
		})
	}

	if err := s.cache.SetPollResults(ctx, results); err != nil {
		log.Printf("缓存计票快照失败 [Poll ID: %d]: %v", pollID, err)
	}

	return results, nil
}
