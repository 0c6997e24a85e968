package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tgnotifier/internal/dispatch"
	"tgnotifier/internal/settings"
	"tgnotifier/internal/shop"
	logx "tgnotifier/pkg/logx"
)

type dispatchResponse struct {
	DispatchID string           `json:"dispatch_id"`
	Outcome    dispatch.Outcome `json:"outcome"`
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	out := gin.H{
		"version": s.deps.Version,
		"uptime":  time.Since(s.start).Round(time.Second).String(),
	}
	if s.deps.History != nil {
		out["history"] = s.deps.History()
	}
	c.JSON(http.StatusOK, out)
}

// postEvent always answers 202 once the envelope is valid: the outcome is
// informational and the caller's business event never fails.
func (s *Server) postEvent(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := shop.ParseEnvelope(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, out := s.dispatch(c, ev)
	c.JSON(http.StatusAccepted, dispatchResponse{DispatchID: id, Outcome: out})
}

func (s *Server) postTest(c *gin.Context) {
	id, out := s.dispatch(c, shop.Event{Kind: shop.KindTest})
	code := http.StatusOK
	if out != dispatch.Sent {
		code = http.StatusBadGateway
	}
	c.JSON(code, dispatchResponse{DispatchID: id, Outcome: out})
}

func (s *Server) dispatch(c *gin.Context, ev shop.Event) (string, dispatch.Outcome) {
	id := uuid.NewString()
	// Dispatch is not cancelled by the client going away.
	ctx := dispatch.WithID(context.WithoutCancel(c.Request.Context()), id)
	return id, s.deps.Dispatcher.Dispatch(ctx, ev)
}

func (s *Server) getSettings(c *gin.Context) {
	snap, err := settings.Load(c.Request.Context(), s.deps.Store)
	if err != nil {
		s.log.Warn("settings load", logx.Err(err))
	}
	c.JSON(http.StatusOK, snap.Redacted())
}

// putSettings merges the body over the stored settings. A masked or absent
// bot token keeps the stored one.
func (s *Server) putSettings(c *gin.Context) {
	ctx := c.Request.Context()
	cur, err := settings.Load(ctx, s.deps.Store)
	if err != nil {
		s.log.Warn("settings load", logx.Err(err))
	}
	next := cur
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if next.BotToken == "" || next.BotToken == settings.MaskToken(cur.BotToken) {
		next.BotToken = cur.BotToken
	}
	next.OrderChatIDs = trimAll(next.OrderChatIDs)
	next.AdminLoginChatIDs = trimAll(next.AdminLoginChatIDs)
	next.NewCustomerChatIDs = trimAll(next.NewCustomerChatIDs)
	next.LastUpdateCheck, next.CachedVersion = cur.LastUpdateCheck, cur.CachedVersion

	next, defaulted := settings.Normalize(next)
	if err := settings.Validate(next); err != nil {
		var ve *settings.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": ve.Problems})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []string{err.Error()}})
		return
	}
	if err := settings.Save(ctx, s.deps.Store, next); err != nil {
		s.log.Error("settings save", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settings not saved"})
		return
	}
	s.log.Info("settings updated", logx.Bool("templates_defaulted", defaulted))
	c.JSON(http.StatusOK, gin.H{"settings": next.Redacted(), "templates_defaulted": defaulted})
}

type verifyRequest struct {
	BotToken string `json:"bot_token"`
}

func (s *Server) verifyToken(c *gin.Context) {
	var req verifyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	token := strings.TrimSpace(req.BotToken)
	if token == "" {
		snap, err := settings.Load(c.Request.Context(), s.deps.Store)
		if err != nil {
			s.log.Warn("settings load", logx.Err(err))
		}
		token = snap.BotToken
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no bot token configured"})
		return
	}
	if s.deps.Verifier == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "token verification unavailable"})
		return
	}
	info, err := s.deps.Verifier.VerifyToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "bot": info})
}

func trimAll(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strings.TrimSpace(id)
	}
	return out
}
