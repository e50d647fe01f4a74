package message

import (
	"strings"

	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	"club-api/internal/domain"
	"club-api/internal/repo"
)

type Service struct {
	Ref *repo.Reference
}

func NewService(ref *repo.Reference) *Service { return &Service{Ref: ref} }

type PrivateInput struct {
	ReceiverID uint   `json:"receiverId" binding:"required"`
	Content    string `json:"content" binding:"required,max=2000"`
}

func (s *Service) SendPrivate(tx *gorm.DB, senderID uint, in PrivateInput) (*domain.PrivateMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	if in.ReceiverID == senderID {
		return nil, apperr.Validation("cannot send a message to yourself")
	}
	var n int64
	if err := tx.Model(&domain.User{}).Where("id = ?", in.ReceiverID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.NotFound("receiver not found")
	}
	m := &domain.PrivateMessage{SenderID: senderID, ReceiverID: in.ReceiverID, Content: content}
	if err := tx.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// Conversation 两人之间的消息，按时间升序
func (s *Service) Conversation(db *gorm.DB, me, other uint) ([]domain.PrivateMessage, error) {
	out := []domain.PrivateMessage{}
	err := db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", me, other, other, me).
		Order("created_at, id").
		Find(&out).Error
	return out, err
}

type ConversationSummary struct {
	With domain.UserSummary    `json:"with"`
	Last domain.PrivateMessage `json:"lastMessage"`
}

// Conversations 每个对话对象只取最新一条
func (s *Service) Conversations(db *gorm.DB, me uint) ([]ConversationSummary, error) {
	var msgs []domain.PrivateMessage
	err := db.Where("sender_id = ? OR receiver_id = ?", me, me).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	latest := map[uint]domain.PrivateMessage{}
	order := []uint{}
	for _, m := range msgs {
		other := m.ReceiverID
		if other == me {
			other = m.SenderID
		}
		if _, ok := latest[other]; ok {
			continue
		}
		latest[other] = m
		order = append(order, other)
	}
	out := make([]ConversationSummary, 0, len(order))
	if len(order) == 0 {
		return out, nil
	}
	var users []domain.User
	if err := db.Where("id IN ?", order).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for _, id := range order {
		cs := ConversationSummary{Last: latest[id]}
		if u, ok := byID[id]; ok {
			cs.With = u.Summary()
		} else {
			cs.With = domain.UserSummary{ID: id}
		}
		out = append(out, cs)
	}
	return out, nil
}
