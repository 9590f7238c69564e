package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"evoting-backend/models"
	"evoting-backend/service"
)

// VoteHandler 投票提交相关的HTTP处理器
type VoteHandler struct {
	votes service.VoteService
}

// NewVoteHandler 创建投票处理器
func NewVoteHandler(votes service.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// SubmitVote 提交投票
// 投票人取自认证上下文，客户端无法替他人投票
func (h *VoteHandler) SubmitVote(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	var input models.CastVoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := c.GetString(ContextUsername)

	err := h.votes.CastVote(c.Request.Context(), username, pollID, input.CandidateID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, service.ErrPollNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		case errors.Is(err, service.ErrPollClosed):
			c.JSON(http.StatusForbidden, gin.H{"error": "Voting on this poll is closed"})
		case errors.Is(err, service.ErrCandidateNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Candidate not found in this poll"})
		case errors.Is(err, service.ErrAlreadyVoted):
			c.JSON(http.StatusConflict, gin.H{"error": "User has already voted in this poll"})
		default:
			log.Printf("提交投票失败: user=%s poll=%d err=%v", username, pollID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit vote"})
		}
		return
	}

	log.Printf("投票成功: user=%s poll=%d candidate=%d", username, pollID, input.CandidateID)
	c.JSON(http.StatusOK, gin.H{"message": "Vote submitted successfully"})
}

// VotingHistory 获取当前用户的投票历史
func (h *VoteHandler) VotingHistory(c *gin.Context) {
	username := c.GetString(ContextUsername)

	votes, err := h.votes.VotingHistory(c.Request.Context(), username)
	if err != nil {
		log.Printf("获取投票历史失败: user=%s err=%v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch voting history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"voting_history": votes})
}
