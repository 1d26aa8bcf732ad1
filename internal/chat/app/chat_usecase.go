package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/pkg"
	"chat_sync_service/pkg/config"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageInput new message request
type MessageInput struct {
	ChatID      string
	SenderID    string
	Content     string
	Type        domain.MessageType
	Attachments []domain.Attachment
	ReplyTo     string
	Metadata    domain.Metadata
}

// GroupInput new group request
type GroupInput struct {
	Name        string
	Description string
	Avatar      string
	MemberIDs   []string
	CreatorID   string
}

// ReadResult outcome of MarkRead
type ReadResult struct {
	ChatID            string
	UserID            string
	LastReadMessageID string
	PreviousUnread    int
	Receipts          int64
	ReadAt            time.Time
}

// Changed anything visible to other members changed
func (r ReadResult) Changed() bool {
	return r.PreviousUnread > 0 || r.Receipts > 0
}

// ChatUseCase durable chat and message operations
type ChatUseCase struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository
	users    repository.UserDirectoryRepository
	authz    *MembershipAuthorizer

	window       int
	deletePolicy config.DeletePolicy
	pageSize     int
	maxPageSize  int
	now          func() time.Time
}

// NewChatUseCase users may be nil, profiles are then not resolved
func NewChatUseCase(
	chats repository.ChatRepository,
	messages repository.MessageRepository,
	users repository.UserDirectoryRepository,
	authz *MembershipAuthorizer,
	cfg config.MessageConfig,
) *ChatUseCase {
	uc := &ChatUseCase{
		chats:        chats,
		messages:     messages,
		users:        users,
		authz:        authz,
		window:       cfg.WindowSize,
		deletePolicy: cfg.DeletePolicy,
		pageSize:     cfg.PageSize,
		maxPageSize:  cfg.MaxPageSize,
		now:          time.Now,
	}
	if uc.window <= 0 {
		uc.window = 50
	}
	if uc.pageSize <= 0 {
		uc.pageSize = 50
	}
	if uc.maxPageSize < uc.pageSize {
		uc.maxPageSize = uc.pageSize
	}
	if uc.deletePolicy == "" {
		uc.deletePolicy = config.SoftDelete
	}
	return uc
}

func (uc *ChatUseCase) timestamp() time.Time {
	return uc.now().UTC().Truncate(time.Millisecond)
}

func (uc *ChatUseCase) assertUsersExist(ctx context.Context, userIDs ...string) error {
	if uc.users == nil {
		return nil
	}
	profiles, err := uc.users.FindProfiles(ctx, userIDs)
	if err != nil {
		return err
	}
	for _, id := range userIDs {
		if _, ok := profiles[id]; !ok {
			return errprocess.NotFound(fmt.Sprintf("user %s not found", id))
		}
	}
	return nil
}

// FindOrCreatePrivateChat idempotent per unordered pair, reports whether the chat was created
func (uc *ChatUseCase) FindOrCreatePrivateChat(ctx context.Context, userA, userB string) (*domain.Chat, bool, error) {
	if userA == "" || userB == "" {
		return nil, false, errprocess.Validation("both users are required")
	}
	if userA == userB {
		return nil, false, errprocess.Validation("cannot start a chat with yourself")
	}

	key := domain.PairKey(userA, userB)
	chat, err := uc.chats.FindPrivateByPair(ctx, key)
	if err == nil {
		return chat, false, nil
	}
	if !errprocess.Is(err, errprocess.KindNotFound) {
		return nil, false, err
	}

	if err := uc.assertUsersExist(ctx, userA, userB); err != nil {
		return nil, false, err
	}

	now := uc.timestamp()
	chat = &domain.Chat{
		ID:         uuid.NewString(),
		Members:    []string{userA, userB},
		PairKey:    key,
		MessageIDs: []string{},
		Status:     domain.ChatActive,
		MemberMeta: []domain.MemberMeta{
			{UserID: userA, Status: domain.MemberActive},
			{UserID: userB, Status: domain.MemberActive},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.chats.CreateChat(ctx, chat)
	if errprocess.Is(err, errprocess.KindConflict) {
		logger.Log.Debug("private chat race, returning winner", zap.String("pair_key", key))
		winner, ferr := uc.chats.FindPrivateByPair(ctx, key)
		return winner, false, ferr
	}
	if err != nil {
		return nil, false, err
	}
	return chat, true, nil
}

// CreateGroupChat creator becomes the first admin and a member
func (uc *ChatUseCase) CreateGroupChat(ctx context.Context, in GroupInput) (*domain.Chat, *domain.Message, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, errprocess.Validation("group name is required")
	}
	members := pkg.Unique(in.MemberIDs)
	if len(members) < 2 {
		return nil, nil, errprocess.Validation("a group needs at least 2 members")
	}
	if in.CreatorID == "" {
		return nil, nil, errprocess.Validation("creator is required")
	}
	if !pkg.Contains(members, in.CreatorID) {
		members = append([]string{in.CreatorID}, members...)
	}
	if err := uc.assertUsersExist(ctx, members...); err != nil {
		return nil, nil, err
	}

	now := uc.timestamp()
	meta := make([]domain.MemberMeta, 0, len(members))
	for _, m := range members {
		meta = append(meta, domain.MemberMeta{UserID: m, Status: domain.MemberActive})
	}
	chat := &domain.Chat{
		ID:          uuid.NewString(),
		IsGroup:     true,
		Members:     members,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Avatar:      in.Avatar,
		CreatedBy:   in.CreatorID,
		Admins:      []string{in.CreatorID},
		MessageIDs:  []string{},
		Status:      domain.ChatActive,
		MemberMeta:  meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.chats.CreateChat(ctx, chat); err != nil {
		return nil, nil, err
	}

	sys, err := uc.appendSystem(ctx, chat, in.CreatorID, domain.SystemGroupCreated,
		fmt.Sprintf("created group %q", name), domain.Metadata{domain.MetaNewName: name})
	if err != nil {
		return nil, nil, err
	}
	return uc.reload(ctx, chat), sys, nil
}

func validateMessageInput(in *MessageInput, system bool) error {
	if strings.TrimSpace(in.Content) == "" {
		return errprocess.Validation("message content cannot be empty")
	}
	if in.Type == "" {
		in.Type = domain.MessageText
	}
	if !in.Type.Valid() {
		return errprocess.Validation(fmt.Sprintf("unknown message type %q", in.Type))
	}
	if in.Type == domain.MessageSystem && !system {
		return errprocess.Validation("system messages are reserved")
	}
	if err := in.Metadata.Validate(in.Type); err != nil {
		return errprocess.Validation(err.Error())
	}
	return nil
}

// AppendMessage persist the message then advance the chat pointer and unread counters
func (uc *ChatUseCase) AppendMessage(ctx context.Context, in MessageInput) (*domain.Message, error) {
	if err := validateMessageInput(&in, false); err != nil {
		return nil, err
	}
	chat, err := uc.authz.RequireMember(ctx, in.ChatID, in.SenderID)
	if err != nil {
		return nil, err
	}
	return uc.appendToChat(ctx, chat, in, "")
}

func (uc *ChatUseCase) appendToChat(ctx context.Context, chat *domain.Chat, in MessageInput, kind domain.SystemMessageType) (*domain.Message, error) {
	if in.ReplyTo != "" {
		target, err := uc.messages.FindByID(ctx, in.ReplyTo)
		if err != nil && !errprocess.Is(err, errprocess.KindNotFound) {
			return nil, err
		}
		if err != nil || target.ChatID != chat.ID || target.Deleted.IsDeleted {
			return nil, errprocess.NotFound("reply target not found in this chat")
		}
	}

	now := uc.timestamp()
	msg := &domain.Message{
		ID:                uuid.NewString(),
		ChatID:            chat.ID,
		SenderID:          in.SenderID,
		Content:           strings.TrimSpace(in.Content),
		MessageType:       in.Type,
		Attachments:       in.Attachments,
		SystemMessageType: kind,
		Status:            domain.StatusSent,
		ReadBy:            []domain.ReadReceipt{},
		ReplyTo:           in.ReplyTo,
		Metadata:          in.Metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := uc.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}
	if err := uc.chats.AdvanceLastMessage(ctx, chat, msg, uc.window); err != nil {
		logger.Log.Error("advance last message failed", zap.String("chat_id", chat.ID), zap.String("message_id", msg.ID), zap.Error(err))
		return nil, err
	}
	return msg, nil
}

func (uc *ChatUseCase) appendSystem(ctx context.Context, chat *domain.Chat, actorID string, kind domain.SystemMessageType, content string, md domain.Metadata) (*domain.Message, error) {
	in := MessageInput{
		ChatID:   chat.ID,
		SenderID: actorID,
		Content:  content,
		Type:     domain.MessageSystem,
		Metadata: md,
	}
	if err := validateMessageInput(&in, true); err != nil {
		return nil, err
	}
	return uc.appendToChat(ctx, chat, in, kind)
}

// MarkRead reset the unread counter of userID and add read receipts
func (uc *ChatUseCase) MarkRead(ctx context.Context, chatID, userID string) (ReadResult, error) {
	chat, err := uc.authz.RequireMember(ctx, chatID, userID)
	if err != nil {
		return ReadResult{}, err
	}

	res := ReadResult{
		ChatID:            chatID,
		UserID:            userID,
		LastReadMessageID: chat.LastMessageID,
		PreviousUnread:    chat.UnreadFor(userID),
		ReadAt:            uc.timestamp(),
	}
	if err := uc.chats.MarkRead(ctx, chatID, userID, chat.LastMessageID); err != nil {
		return ReadResult{}, err
	}
	res.Receipts, err = uc.messages.MarkReadBy(ctx, chatID, userID, res.ReadAt)
	if err != nil {
		return ReadResult{}, err
	}
	return res, nil
}

// SetMemberStatus archive / mute / activate the chat for userID
func (uc *ChatUseCase) SetMemberStatus(ctx context.Context, chatID, userID string, status domain.MemberStatus) error {
	if !status.Valid() {
		return errprocess.Validation(fmt.Sprintf("unknown status %q", status))
	}
	if _, err := uc.authz.RequireMember(ctx, chatID, userID); err != nil {
		return err
	}
	return uc.chats.SetMemberStatus(ctx, chatID, userID, status)
}

// FindMessage deleted messages are not found
func (uc *ChatUseCase) FindMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	msg, err := uc.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted.IsDeleted {
		return nil, errprocess.NotFound("message not found")
	}
	return msg, nil
}

// EditMessage only the original sender may edit
func (uc *ChatUseCase) EditMessage(ctx context.Context, messageID, editorID, content string) (*domain.Message, error) {
	msg, err := uc.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != editorID || msg.MessageType == domain.MessageSystem {
		return nil, errprocess.Forbidden("only the sender can edit this message")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errprocess.Validation("message content cannot be empty")
	}
	if _, err := uc.authz.RequireMember(ctx, msg.ChatID, editorID); err != nil {
		return nil, err
	}

	now := uc.timestamp()
	if err := uc.messages.UpdateContent(ctx, messageID, content, now); err != nil {
		return nil, err
	}
	msg.Content = content
	msg.Edited = domain.Edited{IsEdited: true, EditedAt: &now}
	msg.UpdatedAt = now
	return msg, nil
}

// DeleteMessage sender or group admin, rebuilds the last message pointer when needed
func (uc *ChatUseCase) DeleteMessage(ctx context.Context, messageID, requesterID string) (*domain.Message, error) {
	msg, err := uc.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	chat, err := uc.authz.RequireMember(ctx, msg.ChatID, requesterID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID && !chat.IsAdmin(requesterID) {
		return nil, errprocess.Forbidden("only the sender or an admin can delete this message")
	}

	now := uc.timestamp()
	if uc.deletePolicy == config.HardDelete {
		err = uc.messages.Delete(ctx, messageID)
	} else {
		err = uc.messages.SoftDelete(ctx, messageID, now)
	}
	if err != nil {
		return nil, err
	}
	msg.Deleted = domain.Deleted{IsDeleted: true, DeletedAt: &now}

	if chat.LastMessageID == messageID || pkg.Contains(chat.MessageIDs, messageID) {
		if _, err := uc.RebuildLastMessage(ctx, chat.ID); err != nil {
			logger.Log.Error("rebuild last message failed", zap.String("chat_id", chat.ID), zap.Error(err))
		}
	}
	return msg, nil
}

// ListChatsForUser newest activity first, archived hidden unless includeArchived
func (uc *ChatUseCase) ListChatsForUser(ctx context.Context, userID string, includeArchived bool) ([]domain.Chat, error) {
	chats, err := uc.chats.FindByMember(ctx, userID, includeArchived)
	if err != nil {
		return nil, err
	}

	lastIDs := make([]string, 0, len(chats))
	for _, c := range chats {
		if c.LastMessageID != "" {
			lastIDs = append(lastIDs, c.LastMessageID)
		}
	}
	if len(lastIDs) == 0 {
		return chats, nil
	}
	lastMsgs, err := uc.messages.FindByIDs(ctx, lastIDs)
	if err != nil {
		return nil, err
	}
	uc.ResolveMessages(ctx, lastMsgs)
	byID := make(map[string]*domain.Message, len(lastMsgs))
	for i := range lastMsgs {
		byID[lastMsgs[i].ID] = &lastMsgs[i]
	}
	for i := range chats {
		chats[i].LastMessage = byID[chats[i].LastMessageID]
	}
	return chats, nil
}

// NormalizePage apply default and max page size
func (uc *ChatUseCase) NormalizePage(page domain.Page) domain.Page {
	if page.Limit <= 0 {
		page.Limit = uc.pageSize
	}
	if page.Limit > uc.maxPageSize {
		page.Limit = uc.maxPageSize
	}
	return page
}

// ListMessages visible messages in chronological order
func (uc *ChatUseCase) ListMessages(ctx context.Context, chatID string, page domain.Page) ([]domain.Message, error) {
	msgs, err := uc.messages.FindVisible(ctx, chatID, uc.NormalizePage(page))
	if err != nil {
		return nil, err
	}
	uc.ResolveMessages(ctx, msgs)
	return msgs, nil
}

// RebuildLastMessage recompute the window and pointer from the message collection
func (uc *ChatUseCase) RebuildLastMessage(ctx context.Context, chatID string) (*domain.Chat, error) {
	recent, err := uc.messages.FindVisible(ctx, chatID, domain.Page{Limit: uc.window})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(recent))
	for _, m := range recent {
		ids = append(ids, m.ID)
	}
	var (
		lastID string
		lastAt *time.Time
	)
	if n := len(recent); n > 0 {
		lastID = recent[n-1].ID
		at := recent[n-1].CreatedAt
		lastAt = &at
	}

	if err := uc.chats.SetLastMessage(ctx, chatID, ids, lastID, lastAt); err != nil {
		return nil, err
	}
	return uc.chats.FindByID(ctx, chatID)
}

// MarkDelivered sent -> delivered
func (uc *ChatUseCase) MarkDelivered(ctx context.Context, messageID string) error {
	return uc.messages.MarkDelivered(ctx, messageID)
}

// ResolveMessages populate sender profiles and reply targets in place
func (uc *ChatUseCase) ResolveMessages(ctx context.Context, msgs []domain.Message) {
	if len(msgs) == 0 {
		return
	}

	replyIDs := make([]string, 0)
	for _, m := range msgs {
		if m.ReplyTo != "" {
			replyIDs = append(replyIDs, m.ReplyTo)
		}
	}
	replies := map[string]*domain.Message{}
	if len(replyIDs) > 0 {
		found, err := uc.messages.FindByIDs(ctx, pkg.Unique(replyIDs))
		if err != nil {
			logger.Log.Warn("resolve reply targets", zap.Error(err))
		}
		for i := range found {
			if !found[i].Deleted.IsDeleted {
				replies[found[i].ID] = &found[i]
			}
		}
	}

	var profiles map[string]domain.UserProfile
	if uc.users != nil {
		ids := make([]string, 0, len(msgs)*2)
		for _, m := range msgs {
			ids = append(ids, m.SenderID)
		}
		for _, r := range replies {
			ids = append(ids, r.SenderID)
		}
		var err error
		profiles, err = uc.users.FindProfiles(ctx, pkg.Unique(ids))
		if err != nil {
			logger.Log.Warn("resolve sender profiles", zap.Error(err))
		}
	}

	for i := range msgs {
		if p, ok := profiles[msgs[i].SenderID]; ok {
			sender := p
			msgs[i].Sender = &sender
		}
		if r, ok := replies[msgs[i].ReplyTo]; ok {
			reply := *r
			if p, ok := profiles[reply.SenderID]; ok {
				reply.Sender = &p
			}
			msgs[i].ReplyMessage = &reply
		}
	}
}

// ResolveMessage single message variant of ResolveMessages
func (uc *ChatUseCase) ResolveMessage(ctx context.Context, msg *domain.Message) {
	one := []domain.Message{*msg}
	uc.ResolveMessages(ctx, one)
	*msg = one[0]
}

func (uc *ChatUseCase) reload(ctx context.Context, chat *domain.Chat) *domain.Chat {
	fresh, err := uc.chats.FindByID(ctx, chat.ID)
	if err != nil {
		logger.Log.Warn("reload chat", zap.String("chat_id", chat.ID), zap.Error(err))
		return chat
	}
	return fresh
}

// AddMember admin only, announces the new member with a system message
func (uc *ChatUseCase) AddMember(ctx context.Context, chatID, actorID, userID string) (*domain.Chat, *domain.Message, error) {
	chat, err := uc.authz.RequireAdmin(ctx, chatID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if userID == "" {
		return nil, nil, errprocess.Validation("user is required")
	}
	if chat.HasMember(userID) {
		return nil, nil, errprocess.Validation("user is already a member")
	}
	if err := uc.assertUsersExist(ctx, userID); err != nil {
		return nil, nil, err
	}

	if err := uc.chats.AddMember(ctx, chatID, userID); err != nil {
		return nil, nil, err
	}
	chat = uc.reload(ctx, chat)
	sys, err := uc.appendSystem(ctx, chat, actorID, domain.SystemUserAdded,
		"added a member", domain.Metadata{domain.MetaTargetUserID: userID})
	if err != nil {
		return nil, nil, err
	}
	return uc.reload(ctx, chat), sys, nil
}

// RemoveMember admin only, a group never drops below 2 members
func (uc *ChatUseCase) RemoveMember(ctx context.Context, chatID, actorID, userID string) (*domain.Chat, *domain.Message, error) {
	chat, err := uc.authz.RequireAdmin(ctx, chatID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if userID == actorID {
		return nil, nil, errprocess.Validation("use leave to remove yourself")
	}
	if !chat.HasMember(userID) {
		return nil, nil, errprocess.NotFound("user is not a member")
	}
	if len(chat.Members)-1 < 2 {
		return nil, nil, errprocess.Validation("a group needs at least 2 members")
	}

	if err := uc.chats.RemoveMember(ctx, chatID, userID); err != nil {
		return nil, nil, err
	}
	chat = uc.reload(ctx, chat)
	sys, err := uc.appendSystem(ctx, chat, actorID, domain.SystemUserRemoved,
		"removed a member", domain.Metadata{domain.MetaTargetUserID: userID})
	if err != nil {
		return nil, nil, err
	}
	return uc.reload(ctx, chat), sys, nil
}

// RenameGroup admin only
func (uc *ChatUseCase) RenameGroup(ctx context.Context, chatID, actorID, name string) (*domain.Chat, *domain.Message, error) {
	chat, err := uc.authz.RequireAdmin(ctx, chatID, actorID)
	if err != nil {
		return nil, nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, errprocess.Validation("group name is required")
	}

	old := chat.Name
	if err := uc.chats.UpdateGroup(ctx, chatID, repository.GroupUpdate{Name: &name}); err != nil {
		return nil, nil, err
	}
	sys, err := uc.appendSystem(ctx, chat, actorID, domain.SystemGroupRenamed,
		fmt.Sprintf("renamed the group to %q", name),
		domain.Metadata{domain.MetaOldName: old, domain.MetaNewName: name})
	if err != nil {
		return nil, nil, err
	}
	return uc.reload(ctx, chat), sys, nil
}

// LeaveGroup self service, the earliest remaining member is promoted when no admin is left
func (uc *ChatUseCase) LeaveGroup(ctx context.Context, chatID, userID string) (*domain.Chat, *domain.Message, error) {
	chat, err := uc.authz.RequireMember(ctx, chatID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !chat.IsGroup {
		return nil, nil, errprocess.Validation("cannot leave a private chat")
	}
	if len(chat.Members)-1 < 2 {
		return nil, nil, errprocess.Validation("a group needs at least 2 members")
	}

	if err := uc.chats.RemoveMember(ctx, chatID, userID); err != nil {
		return nil, nil, err
	}
	chat = uc.reload(ctx, chat)
	if len(chat.Admins) == 0 && len(chat.Members) > 0 {
		if err := uc.chats.UpdateGroup(ctx, chatID, repository.GroupUpdate{Admins: []string{chat.Members[0]}}); err != nil {
			return nil, nil, err
		}
		chat.Admins = []string{chat.Members[0]}
	}

	sys, err := uc.appendSystem(ctx, chat, userID, domain.SystemUserLeft,
		"left the group", domain.Metadata{domain.MetaTargetUserID: userID})
	if err != nil {
		return nil, nil, err
	}
	return uc.reload(ctx, chat), sys, nil
}
