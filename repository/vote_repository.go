package repository

import (
	"context"
	"errors"

	"evoting-backend/models"

	"gorm.io/gorm"
)

// ErrDuplicateVote (username, poll_id)唯一索引冲突
var ErrDuplicateVote = errors.New("duplicate vote")

// VoteRepository 投票记录数据访问接口
type VoteRepository interface {
	CreateVote(ctx context.Context, vote *models.Vote) error
	HasUserVoted(ctx context.Context, username string, pollID uint) (bool, error)
	GetVotesByUsername(ctx context.Context, username string) ([]models.Vote, error)
	CountVotesByPoll(ctx context.Context, pollID uint) (int64, error)
	CountVotesByCandidate(ctx context.Context, pollID uint) (map[uint]int64, error)
}

// VoteRepositoryImpl 基于GORM的投票记录数据仓库
type VoteRepositoryImpl struct {
	db *gorm.DB
}

// NewVoteRepository 创建投票记录数据仓库
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &VoteRepositoryImpl{db: db}
}

// CreateVote 写入投票记录
// 唯一索引冲突翻译为ErrDuplicateVote，由存储层原子保证一人一票
func (r *VoteRepositoryImpl) CreateVote(ctx context.Context, vote *models.Vote) error {
	err := r.db.WithContext(ctx).Create(vote).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateVote
	}
	return err
}

// HasUserVoted 检查用户在该投票活动中是否已投票
func (r *VoteRepositoryImpl) HasUserVoted(ctx context.Context, username string, pollID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("username = ? AND poll_id = ?", username, pollID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetVotesByUsername 获取用户的全部投票记录
func (r *VoteRepositoryImpl) GetVotesByUsername(ctx context.Context, username string) ([]models.Vote, error) {
	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("id ASC").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

// CountVotesByPoll 统计投票活动的总票数
func (r *VoteRepositoryImpl) CountVotesByPoll(ctx context.Context, pollID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("poll_id = ?", pollID).
		Count(&count).Error
	return count, err
}

// CountVotesByCandidate 按候选人分组统计票数
// 只返回实际有票的候选人，补零由服务层按候选人列表完成
func (r *VoteRepositoryImpl) CountVotesByCandidate(ctx context.Context, pollID uint) (map[uint]int64, error) {
	type row struct {
		CandidateID uint
		Count       int64
	}

	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("candidate_id, COUNT(*) as count").
		Where("poll_id = ?", pollID).
		Group("candidate_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.CandidateID] = r.Count
	}
	return counts, nil
}
