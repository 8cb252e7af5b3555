package api

import (
	"net/http"

	"FlashChat/middleware/security"
	"FlashChat/module/chat/message"
	"FlashChat/module/chat/model"
	"FlashChat/module/story"
	"FlashChat/tools/errs"

	"github.com/gin-gonic/gin"
)

// mediaBody Data 为 base64
type mediaBody struct {
	Data        []byte          `json:"data"`
	ContentType string          `json:"contentType"`
	Kind        model.MediaKind `json:"kind"`
}

type sendBody struct {
	RecipientID  string     `json:"recipientId"`
	Text         string     `json:"text"`
	TimerSeconds int        `json:"timerSeconds"`
	Media        *mediaBody `json:"media"`
}

// messageView 带读侧状态的消息
type messageView struct {
	*model.Message
	Status model.Status `json:"status"`
}

func (s *Server) present(m *model.Message) messageView {
	return messageView{Message: m, Status: m.EffectiveStatus(s.now())}
}

func (s *Server) sendMessage(c *gin.Context) error {
	var body sendBody
	if err := bind(c, &body); err != nil {
		return err
	}
	req := message.SendRequest{
		SenderID:     security.UserID(c),
		RecipientID:  body.RecipientID,
		Text:         body.Text,
		TimerSeconds: body.TimerSeconds,
	}
	if body.Media != nil {
		req.Media = &message.MediaUpload{Data: body.Media.Data, ContentType: body.Media.ContentType, Kind: body.Media.Kind}
	}
	id, err := s.d.Messages.Send(c.Request.Context(), req)
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
	return nil
}

func (s *Server) viewMessage(c *gin.Context) error {
	m, err := s.d.Messages.View(c.Request.Context(), c.Param("id"), security.UserID(c))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, s.present(m))
	return nil
}

func (s *Server) markDelivered(c *gin.Context) error {
	changed, err := s.d.Messages.MarkDelivered(c.Request.Context(), c.Param("id"), security.UserID(c))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
	return nil
}

func (s *Server) reportScreenshot(c *gin.Context) error {
	if err := s.d.Messages.ReportScreenshot(c.Request.Context(), c.Param("id"), security.UserID(c)); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (s *Server) listConversations(c *gin.Context) error {
	out, err := s.d.Conversations.ListSummaries(c.Request.Context(), security.UserID(c), queryInt(c, "limit", 0))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
	return nil
}

func (s *Server) startConversation(c *gin.Context) error {
	var body struct {
		PeerID string `json:"peerId"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	conv, err := s.d.Conversations.Start(c.Request.Context(), security.UserID(c), body.PeerID)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, conv)
	return nil
}

func (s *Server) listMessages(c *gin.Context) error {
	msgs, err := s.d.Messages.ListConversation(c.Request.Context(), security.UserID(c), c.Param("peer"), queryInt(c, "limit", 0))
	if err != nil {
		return err
	}
	items := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, s.present(m))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
	return nil
}

type storyBody struct {
	Media     mediaBody     `json:"media"`
	Text      string        `json:"text"`
	Privacy   model.Privacy `json:"privacy"`
	AllowList []string      `json:"allowList"`
}

func (s *Server) createStory(c *gin.Context) error {
	var body storyBody
	if err := bind(c, &body); err != nil {
		return err
	}
	id, err := s.d.Stories.Create(c.Request.Context(), story.CreateRequest{
		OwnerID:   security.UserID(c),
		Media:     story.MediaUpload{Data: body.Media.Data, ContentType: body.Media.ContentType, Kind: body.Media.Kind},
		Text:      body.Text,
		Privacy:   body.Privacy,
		AllowList: body.AllowList,
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
	return nil
}

func (s *Server) storyFeed(c *gin.Context) error {
	groups, err := s.d.Stories.ListForFriends(c.Request.Context(), security.UserID(c))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
	return nil
}

func (s *Server) myStories(c *gin.Context) error {
	items, err := s.d.Stories.ListOwn(c.Request.Context(), security.UserID(c))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
	return nil
}

func (s *Server) viewStory(c *gin.Context) error {
	st, err := s.d.Stories.View(c.Request.Context(), c.Param("id"), security.UserID(c))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, st)
	return nil
}

func (s *Server) storyViewers(c *gin.Context) error {
	viewers, err := s.d.Stories.GetViewers(c.Request.Context(), c.Param("id"), security.UserID(c))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"items": viewers})
	return nil
}

func (s *Server) deleteStory(c *gin.Context) error {
	if err := s.d.Stories.DeleteOwn(c.Request.Context(), c.Param("id"), security.UserID(c)); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (s *Server) getPresence(c *gin.Context) error {
	p, err := s.d.Presence.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, p)
	return nil
}

func (s *Server) suggestFriends(c *gin.Context) error {
	if s.d.Suggest == nil {
		return errs.ErrNotFound.WrapMsg("suggestions disabled")
	}
	var body struct {
		ContactHashes []string `json:"contactHashes"`
		Limit         int      `json:"limit"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	out, err := s.d.Suggest.Suggest(c.Request.Context(), security.UserID(c), body.ContactHashes, body.Limit)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
	return nil
}

func (s *Server) downloadMedia(c *gin.Context) error {
	if s.d.Media == nil {
		return errs.ErrNotFound.WrapMsg("media download disabled")
	}
	data, ct, err := s.d.Media.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, ct, data)
	return nil
}
