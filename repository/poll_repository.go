package repository

import (
	"context"
	"errors"

	"evoting-backend/models"

	"gorm.io/gorm"
)

// 数据层错误定义
var (
	ErrPollNotFound      = errors.New("poll not found")
	ErrCandidateNotFound = errors.New("candidate not found")
)

// PollRepository 投票活动数据访问接口
type PollRepository interface {
	// 投票活动相关方法
	CreatePoll(ctx context.Context, poll *models.Poll) error
	GetPollByID(ctx context.Context, id uint) (*models.Poll, error)
	ListPolls(ctx context.Context) ([]models.Poll, error)
	UpdatePoll(ctx context.Context, id uint, updates map[string]interface{}) error
	DeletePoll(ctx context.Context, id uint) error
	SetPollImage(ctx context.Context, id uint, url string) error

	// 候选人相关方法
	AddCandidate(ctx context.Context, candidate *models.Candidate) error
	RemoveCandidate(ctx context.Context, pollID, candidateID uint) error
	GetCandidatesByPollID(ctx context.Context, pollID uint) ([]models.Candidate, error)
}

// PollRepositoryImpl 基于GORM的投票活动数据仓库
type PollRepositoryImpl struct {
	db *gorm.DB
}

// NewPollRepository 创建投票活动数据仓库
func NewPollRepository(db *gorm.DB) PollRepository {
	return &PollRepositoryImpl{db: db}
}

// CreatePoll 创建投票活动
func (r *PollRepositoryImpl) CreatePoll(ctx context.Context, poll *models.Poll) error {
	return r.db.WithContext(ctx).Create(poll).Error
}

// GetPollByID 获取投票活动详情，候选人按插入顺序返回
func (r *PollRepositoryImpl) GetPollByID(ctx context.Context, id uint) (*models.Poll, error) {
	var poll models.Poll
	err := r.db.WithContext(ctx).
		Preload("Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("candidates.id ASC")
		}).
		First(&poll, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

// ListPolls 获取全部投票活动
func (r *PollRepositoryImpl) ListPolls(ctx context.Context) ([]models.Poll, error) {
	var polls []models.Poll
	err := r.db.WithContext(ctx).
		Preload("Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("candidates.id ASC")
		}).
		Order("polls.id DESC").
		Find(&polls).Error
	if err != nil {
		return nil, err
	}
	return polls, nil
}

// UpdatePoll 更新投票活动字段
func (r *PollRepositoryImpl) UpdatePoll(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Poll{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPollNotFound
	}
	return nil
}

// DeletePoll 删除投票活动，级联删除候选人和投票记录
func (r *PollRepositoryImpl) DeletePoll(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Poll{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPollNotFound
		}

		if err := tx.Where("poll_id = ?", id).Delete(&models.Candidate{}).Error; err != nil {
			return err
		}
		return tx.Where("poll_id = ?", id).Delete(&models.Vote{}).Error
	})
}

// SetPollImage 更新投票活动图片URL
func (r *PollRepositoryImpl) SetPollImage(ctx context.Context, id uint, url string) error {
	return r.UpdatePoll(ctx, id, map[string]interface{}{"poll_image_url": url})
}

// AddCandidate 向投票活动追加候选人
func (r *PollRepositoryImpl) AddCandidate(ctx context.Context, candidate *models.Candidate) error {
	return r.db.WithContext(ctx).Create(candidate).Error
}

// RemoveCandidate 从投票活动中移除候选人
// 已投给该候选人的票不做清理，计票时按现有候选人列表补零
func (r *PollRepositoryImpl) RemoveCandidate(ctx context.Context, pollID, candidateID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND poll_id = ?", candidateID, pollID).
		Delete(&models.Candidate{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCandidateNotFound
	}
	return nil
}

// GetCandidatesByPollID 获取投票活动的候选人列表
func (r *PollRepositoryImpl) GetCandidatesByPollID(ctx context.Context, pollID uint) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
