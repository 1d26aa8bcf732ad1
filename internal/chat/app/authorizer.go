package app

import (
	"context"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	errprocess "chat_sync_service/pkg/err"
)

// MembershipAuthorizer decide who may read / write a chat
type MembershipAuthorizer struct {
	chats repository.ChatRepository
}

// NewMembershipAuthorizer create MembershipAuthorizer
func NewMembershipAuthorizer(chats repository.ChatRepository) *MembershipAuthorizer {
	return &MembershipAuthorizer{chats: chats}
}

// AssertMember forbidden unless userID is in chat.Members
func (a *MembershipAuthorizer) AssertMember(chat *domain.Chat, userID string) error {
	if chat == nil || !chat.HasMember(userID) {
		return errprocess.Forbidden("not a member of this chat")
	}
	return nil
}

// AssertAdmin member and group admin, always fails on private chats
func (a *MembershipAuthorizer) AssertAdmin(chat *domain.Chat, userID string) error {
	if err := a.AssertMember(chat, userID); err != nil {
		return err
	}
	if !chat.IsGroup {
		return errprocess.Forbidden("private chats have no admins")
	}
	if !chat.IsAdmin(userID) {
		return errprocess.Forbidden("admin rights required")
	}
	return nil
}

// RequireMember load chatID and assert membership
func (a *MembershipAuthorizer) RequireMember(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	chat, err := a.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := a.AssertMember(chat, userID); err != nil {
		return nil, err
	}
	return chat, nil
}

// RequireAdmin load chatID and assert admin rights
func (a *MembershipAuthorizer) RequireAdmin(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	chat, err := a.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := a.AssertAdmin(chat, userID); err != nil {
		return nil, err
	}
	return chat, nil
}
