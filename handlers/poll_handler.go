package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"evoting-backend/models"
	"evoting-backend/service"
	"evoting-backend/uploader"
)

// PollHandler 投票活动相关的HTTP处理器
type PollHandler struct {
	polls   service.PollService
	uploads uploader.Uploader
}

// NewPollHandler 创建投票活动处理器
func NewPollHandler(polls service.PollService, uploads uploader.Uploader) *PollHandler {
	return &PollHandler{polls: polls, uploads: uploads}
}

// parsePollID 解析路径中的投票活动ID
func parsePollID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid poll ID"})
		return 0, false
	}
	return uint(id), true
}

// GetPolls 获取投票活动列表
func (h *PollHandler) GetPolls(c *gin.Context) {
	polls, err := h.polls.ListPolls(c.Request.Context())
	if err != nil {
		log.Printf("获取投票列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch polls"})
		return
	}
	c.JSON(http.StatusOK, polls)
}

// GetPoll 获取投票活动详情
func (h *PollHandler) GetPoll(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	poll, err := h.polls.GetPollByID(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		log.Printf("获取投票详情失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch poll"})
		return
	}
	c.JSON(http.StatusOK, poll)
}

// GetCandidates 获取投票活动的候选人列表
func (h *PollHandler) GetCandidates(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	poll, err := h.polls.GetCandidates(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		log.Printf("获取候选人列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch candidates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"poll":       poll.Title,
		"candidates": poll.Candidates,
	})
}

// CreatePoll 创建投票活动（管理员）
func (h *PollHandler) CreatePoll(c *gin.Context) {
	var input models.CreatePollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	poll, err := h.polls.CreatePoll(c.Request.Context(), &input)
	if err != nil {
		log.Printf("创建投票失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create poll"})
		return
	}

	log.Printf("投票创建成功: ID=%d, Title=%s", poll.ID, poll.Title)
	c.JSON(http.StatusCreated, poll)
}

// UpdatePoll 更新投票活动（管理员）
func (h *PollHandler) UpdatePoll(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	var input models.UpdatePollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	poll, err := h.polls.UpdatePoll(c.Request.Context(), pollID, &input)
	if err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		log.Printf("更新投票失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update poll"})
		return
	}
	c.JSON(http.StatusOK, poll)
}

// DeletePoll 删除投票活动及关联投票记录（管理员）
func (h *PollHandler) DeletePoll(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	if err := h.polls.DeletePoll(c.Request.Context(), pollID); err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		log.Printf("删除投票失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete poll"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Poll and associated votes deleted"})
}

// AddCandidate 添加候选人（管理员）
func (h *PollHandler) AddCandidate(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	var input models.AddCandidateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidate, err := h.polls.AddCandidate(c.Request.Context(), pollID, &input)
	if err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		log.Printf("添加候选人失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add candidate"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Candidate added successfully",
		"candidate_id": candidate.ID,
	})
}

// RemoveCandidate 移除候选人（管理员）
func (h *PollHandler) RemoveCandidate(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	candidateID, err := strconv.ParseUint(c.Param("candidateId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid candidate ID"})
		return
	}

	if err := h.polls.RemoveCandidate(c.Request.Context(), pollID, uint(candidateID)); err != nil {
		if errors.Is(err, service.ErrCandidateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll or candidate not found"})
			return
		}
		log.Printf("移除候选人失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove candidate"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Candidate deleted successfully"})
}

// UploadPollImage 上传投票活动封面图（管理员）
func (h *PollHandler) UploadPollImage(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	data, ok := readImageFile(c)
	if !ok {
		return
	}

	url, err := h.uploads.Upload(data, "poll_images")
	if err != nil {
		log.Printf("上传投票封面失败: poll=%d err=%v", pollID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload image"})
		return
	}

	if err := h.polls.SetPollImage(c.Request.Context(), pollID, url); err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		log.Printf("保存投票封面失败: poll=%d err=%v", pollID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update poll image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Poll image updated",
		"poll_image_url": url,
	})
}

// GetPollVotes 查询计票结果（管理员）
// 每个在列候选人都在结果中，无票候选人计零
func (h *PollHandler) GetPollVotes(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	results, err := h.polls.GetPollResults(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		log.Printf("获取计票结果失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch poll votes"})
		return
	}

	c.JSON(http.StatusOK, results)
}
