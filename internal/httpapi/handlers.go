package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"voicecall-engine/internal/auth"
	"voicecall-engine/internal/call"
	"voicecall-engine/internal/reporting"

	"github.com/gin-gonic/gin"
)

// CallService is what the handlers need from the engine. Implemented by
// *call.Engine; declared here so handlers can be tested against a stub.
type CallService interface {
	RequestStartCall(ctx context.Context, peerID string) error
	RequestAnswerCall(ctx context.Context) error
	RequestEndCall(ctx context.Context) error
	RequestSetMute(ctx context.Context, muted bool) error
	ActiveSnapshot(ctx context.Context) (call.Snapshot, bool)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Calls     CallService
	Reporting *reporting.Service

	// SelfID is the local account; it derives conversation ids from peer ids.
	SelfID string
}

// --- Auth ---

type loginRequest struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.DeviceID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, device_id required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.DeviceID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Call actions ---

type startCallRequest struct {
	PeerID string `json:"peer_id"`
}

func (h Handlers) StartCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call engine not configured"})
		return
	}
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.PeerID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "peer_id required"})
		return
	}
	if err := h.Calls.RequestStartCall(c.Request.Context(), req.PeerID); err != nil {
		abortWithCallError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "starting"})
}

func (h Handlers) AnswerCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call engine not configured"})
		return
	}
	if err := h.Calls.RequestAnswerCall(c.Request.Context()); err != nil {
		abortWithCallError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "answering"})
}

func (h Handlers) EndCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call engine not configured"})
		return
	}
	if err := h.Calls.RequestEndCall(c.Request.Context()); err != nil {
		abortWithCallError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "ending"})
}

type muteRequest struct {
	Muted *bool `json:"muted"`
}

func (h Handlers) SetMute(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call engine not configured"})
		return
	}
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Muted == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "muted required"})
		return
	}
	if err := h.Calls.RequestSetMute(c.Request.Context(), *req.Muted); err != nil {
		abortWithCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": *req.Muted})
}

func (h Handlers) ActiveCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call engine not configured"})
		return
	}
	snap, ok := h.Calls.ActiveSnapshot(c.Request.Context())
	if !ok {
		c.JSON(http.StatusOK, gin.H{"active": false, "pending_offers": snap.PendingOffers})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true, "call": snap})
}

// --- History & reports ---

func (h Handlers) History(c *gin.Context) {
	if h.Reporting == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}
	recs, err := h.Reporting.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

// CallsSummary aggregates terminal records for one conversation. The
// conversation may be named directly or derived from a peer id.
func (h Handlers) CallsSummary(c *gin.Context) {
	if h.Reporting == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	conversationID := c.Query("conversation_id")
	if conversationID == "" {
		if peerID := c.Query("peer_id"); peerID != "" {
			conversationID = call.ConversationID(h.SelfID, peerID)
		}
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
		return
	}

	summary, err := h.Reporting.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		ConversationID: conversationID,
		Range:          reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conversation_id or peer_id and a valid range required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func abortWithCallError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, call.ErrLineBusy):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "line is busy"})
	case errors.Is(err, call.ErrInvalidCallID):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no such call"})
	case errors.Is(err, call.ErrInvalidHandle):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid peer"})
	case errors.Is(err, call.ErrNetworkUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "messaging transport unavailable"})
	case errors.Is(err, call.ErrPermissionDenied):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "microphone permission denied"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call action failed"})
	}
}
