package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evoting-backend/cache"
	"evoting-backend/models"
	"evoting-backend/repository"
)

// voteLockExpiry 投票写入锁的过期时间
const voteLockExpiry = 3 * time.Second

// ResultPublisher 投票提交成功后的结果发布接口
// 实现必须是非阻塞的，发布失败不回滚也不影响投票结果
type ResultPublisher interface {
	PublishVoteUpdate(pollID uint)
}

// VoteService 投票服务接口
type VoteService interface {
	CastVote(ctx context.Context, username string, pollID, candidateID uint) error
	VotingHistory(ctx context.Context, username string) ([]models.Vote, error)
}

// VoteServiceImpl 投票服务实现
type VoteServiceImpl struct {
	userRepo  repository.UserRepository
	pollRepo  repository.PollRepository
	voteRepo  repository.VoteRepository
	locks     *cache.DistributedLockService
	cache     *cache.Cache
	publisher ResultPublisher
}

// NewVoteService 创建投票服务
func NewVoteService(
	userRepo repository.UserRepository,
	pollRepo repository.PollRepository,
	voteRepo repository.VoteRepository,
	locks *cache.DistributedLockService,
	c *cache.Cache,
	publisher ResultPublisher,
) VoteService {
	return &VoteServiceImpl{
		userRepo:  userRepo,
		pollRepo:  pollRepo,
		voteRepo:  voteRepo,
		locks:     locks,
		cache:     c,
		publisher: publisher,
	}
}

// CastVote 提交投票
// 检查顺序固定：用户存在 -> 活动存在 -> 活动开放 -> 候选人存在 -> 未投过票 -> 写入。
// 一人一票最终由votes表的唯一索引原子保证，分布式锁只用来让同一
// (用户, 活动)的并发请求串行化，使正常路径拿到友好的重复投票错误
// 而不是唯一键冲突。
func (s *VoteServiceImpl) CastVote(ctx context.Context, username string, pollID, candidateID uint) error {
	if _, err := s.userRepo.GetUserByUsername(ctx, username); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	poll, err := s.pollRepo.GetPollByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return ErrPollNotFound
		}
		return err
	}

	if !poll.IsActive {
		return ErrPollClosed
	}

	candidateExists := false
	for _, c := range poll.Candidates {
		if c.ID == candidateID {
			candidateExists = true
			break
		}
	}
	if !candidateExists {
		return ErrCandidateNotFound
	}

	lockName := fmt.Sprintf("vote_lock:%s:%d", username, pollID)
	err = s.locks.WithLock(lockName, voteLockExpiry, func() error {
		hasVoted, err := s.voteRepo.HasUserVoted(ctx, username, pollID)
		if err != nil {
			return err
		}
		if hasVoted {
			return ErrAlreadyVoted
		}

		vote := &models.Vote{
			Username:    username,
			PollID:      pollID,
			CandidateID: candidateID,
		}
		if err := s.voteRepo.CreateVote(ctx, vote); err != nil {
			// 锁失效或跨实例并发时由唯一索引兜底
			if errors.Is(err, repository.ErrDuplicateVote) {
				return ErrAlreadyVoted
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	// 提交成功后失效计票缓存并异步广播，广播失败不影响投票结果
	s.cache.InvalidatePollResults(ctx, pollID)
	s.publisher.PublishVoteUpdate(pollID)

	return nil
}

// VotingHistory 获取用户的投票历史
func (s *VoteServiceImpl) VotingHistory(ctx context.Context, username string) ([]models.Vote, error) {
	return s.voteRepo.GetVotesByUsername(ctx, username)
}
