package repository

import (
	"context"
	"errors"
	"time"

	"chat_sync_service/internal/chat/domain"
	errprocess "chat_sync_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GroupUpdate fields of a group that may change, nil means unchanged
type GroupUpdate struct {
	Name        *string
	Description *string
	Avatar      *string
	Admins      []string
}

// ChatRepository definition chat document store
type ChatRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateChat(ctx context.Context, chat *domain.Chat) error
	FindByID(ctx context.Context, chatID string) (*domain.Chat, error)
	FindPrivateByPair(ctx context.Context, pairKey string) (*domain.Chat, error)
	FindByMember(ctx context.Context, userID string, includeArchived bool) ([]domain.Chat, error)
	AdvanceLastMessage(ctx context.Context, chat *domain.Chat, msg *domain.Message, window int) error
	MarkRead(ctx context.Context, chatID, userID, lastMessageID string) error
	SetMemberStatus(ctx context.Context, chatID, userID string, status domain.MemberStatus) error
	SetLastMessage(ctx context.Context, chatID string, messageIDs []string, lastID string, lastAt *time.Time) error
	AddMember(ctx context.Context, chatID, userID string) error
	RemoveMember(ctx context.Context, chatID, userID string) error
	UpdateGroup(ctx context.Context, chatID string, update GroupUpdate) error
}

type chatRepository struct {
	chats *mongo.Collection
}

// NewMongoChatRepository create chat repository on db
func NewMongoChatRepository(db *mongo.Database) ChatRepository {
	return &chatRepository{chats: db.Collection(domain.ChatCollection)}
}

// EnsureIndexes pair_key unique sparse, member listing
func (r *chatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.chats.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_pair_key"),
		},
		{
			Keys:    bson.D{{Key: "members", Value: 1}, {Key: "last_message_at", Value: -1}},
			Options: options.Index().SetName("members_last_message"),
		},
	})
	if err != nil {
		return errprocess.Internal(err, "chatRepository.EnsureIndexes")
	}
	return nil
}

// CreateChat insert chat, duplicate pair_key is a conflict
func (r *chatRepository) CreateChat(ctx context.Context, chat *domain.Chat) error {
	if _, err := r.chats.InsertOne(ctx, chat); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errprocess.Conflict(err, "chat already exists")
		}
		return errprocess.Internal(err, "chatRepository.CreateChat")
	}
	return nil
}

func (r *chatRepository) findOne(ctx context.Context, filter bson.M, op string) (*domain.Chat, error) {
	var chat domain.Chat
	if err := r.chats.FindOne(ctx, filter).Decode(&chat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errprocess.NotFound("chat not found")
		}
		return nil, errprocess.Internal(err, op)
	}
	return &chat, nil
}

// FindByID find chat by id
func (r *chatRepository) FindByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	return r.findOne(ctx, bson.M{"_id": chatID}, "chatRepository.FindByID")
}

// FindPrivateByPair find private chat of the normalized pair
func (r *chatRepository) FindPrivateByPair(ctx context.Context, pairKey string) (*domain.Chat, error) {
	return r.findOne(ctx, bson.M{"pair_key": pairKey, "is_group": false}, "chatRepository.FindPrivateByPair")
}

// FindByMember chats of userID, newest activity first
func (r *chatRepository) FindByMember(ctx context.Context, userID string, includeArchived bool) ([]domain.Chat, error) {
	filter := bson.M{"members": userID}
	if !includeArchived {
		filter["member_meta"] = bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"user_id": userID,
			"status":  domain.MemberArchived,
		}}}
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "last_message_at", Value: -1},
		{Key: "created_at", Value: -1},
	})

	cursor, err := r.chats.Find(ctx, filter, opts)
	if err != nil {
		return nil, errprocess.Internal(err, "chatRepository.FindByMember")
	}
	defer cursor.Close(ctx)

	chats := []domain.Chat{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, errprocess.Internal(err, "chatRepository.FindByMember")
	}
	return chats, nil
}

// ensureMemberMeta push a zero metadata entry for members lacking one
func (r *chatRepository) ensureMemberMeta(ctx context.Context, chatID string, members []string) error {
	for _, userID := range members {
		_, err := r.chats.UpdateOne(ctx,
			bson.M{"_id": chatID, "members": userID, "member_meta.user_id": bson.M{"$ne": userID}},
			bson.M{"$push": bson.M{"member_meta": domain.MemberMeta{UserID: userID, Status: domain.MemberActive}}},
		)
		if err != nil {
			return errprocess.Internal(err, "chatRepository.ensureMemberMeta")
		}
	}
	return nil
}

// AdvanceLastMessage push msg into the window, bump unread of everyone but the sender and move the pointer
// forward. The pointer never moves back to an older message when nodes advance out of order.
func (r *chatRepository) AdvanceLastMessage(ctx context.Context, chat *domain.Chat, msg *domain.Message, window int) error {
	missing := make([]string, 0)
	for _, m := range chat.Members {
		if chat.Meta(m) == nil {
			missing = append(missing, m)
		}
	}
	if err := r.ensureMemberMeta(ctx, chat.ID, missing); err != nil {
		return err
	}

	update := bson.M{
		"$push": bson.M{"message_ids": bson.M{"$each": []string{msg.ID}, "$slice": -window}},
		"$max":  bson.M{"updated_at": msg.CreatedAt},
		"$inc":  bson.M{"member_meta.$[m].unread_count": 1},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"m.user_id": bson.M{"$ne": msg.SenderID}}},
	})

	res, err := r.chats.UpdateOne(ctx, bson.M{"_id": chat.ID}, update, opts)
	if err != nil {
		return errprocess.Internal(err, "chatRepository.AdvanceLastMessage")
	}
	if res.MatchedCount == 0 {
		return errprocess.NotFound("chat not found")
	}

	// a newer message already holds the pointer when nothing matches
	_, err = r.chats.UpdateOne(ctx,
		bson.M{
			"_id": chat.ID,
			"$or": []bson.M{
				{"last_message_at": nil},
				{"last_message_at": bson.M{"$lte": msg.CreatedAt}},
			},
		},
		bson.M{"$set": bson.M{
			"last_message_id": msg.ID,
			"last_message_at": msg.CreatedAt,
		}},
	)
	if err != nil {
		return errprocess.Internal(err, "chatRepository.AdvanceLastMessage")
	}
	return nil
}

// setMeta $set fields on the metadata of userID, creating the entry when missing
func (r *chatRepository) setMeta(ctx context.Context, chatID, userID string, fields bson.M, fresh domain.MemberMeta, op string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set["member_meta.$[m]."+k] = v
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"m.user_id": userID}},
	})
	res, err := r.chats.UpdateOne(ctx,
		bson.M{"_id": chatID, "members": userID, "member_meta.user_id": userID},
		bson.M{"$set": set},
		opts,
	)
	if err != nil {
		return errprocess.Internal(err, op)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	res, err = r.chats.UpdateOne(ctx,
		bson.M{"_id": chatID, "members": userID, "member_meta.user_id": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"member_meta": fresh}},
	)
	if err != nil {
		return errprocess.Internal(err, op)
	}
	if res.MatchedCount == 0 {
		return errprocess.NotFound("chat member not found")
	}
	return nil
}

// MarkRead reset unread of userID only
func (r *chatRepository) MarkRead(ctx context.Context, chatID, userID, lastMessageID string) error {
	return r.setMeta(ctx, chatID, userID,
		bson.M{"unread_count": 0, "last_read_message_id": lastMessageID},
		domain.MemberMeta{UserID: userID, LastReadMessageID: lastMessageID, Status: domain.MemberActive},
		"chatRepository.MarkRead",
	)
}

// SetMemberStatus archive / mute / activate for userID
func (r *chatRepository) SetMemberStatus(ctx context.Context, chatID, userID string, status domain.MemberStatus) error {
	return r.setMeta(ctx, chatID, userID,
		bson.M{"status": status},
		domain.MemberMeta{UserID: userID, Status: status},
		"chatRepository.SetMemberStatus",
	)
}

// SetLastMessage overwrite the denormalized window and pointer
func (r *chatRepository) SetLastMessage(ctx context.Context, chatID string, messageIDs []string, lastID string, lastAt *time.Time) error {
	if messageIDs == nil {
		messageIDs = []string{}
	}
	update := bson.M{"$set": bson.M{
		"message_ids":     messageIDs,
		"last_message_id": lastID,
		"last_message_at": lastAt,
		"updated_at":      time.Now().UTC(),
	}}
	if lastID == "" {
		update = bson.M{
			"$set":   bson.M{"message_ids": messageIDs, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"last_message_id": "", "last_message_at": ""},
		}
	}

	res, err := r.chats.UpdateOne(ctx, bson.M{"_id": chatID}, update)
	if err != nil {
		return errprocess.Internal(err, "chatRepository.SetLastMessage")
	}
	if res.MatchedCount == 0 {
		return errprocess.NotFound("chat not found")
	}
	return nil
}

// AddMember append userID with fresh metadata, no-op when present
func (r *chatRepository) AddMember(ctx context.Context, chatID, userID string) error {
	_, err := r.chats.UpdateOne(ctx,
		bson.M{"_id": chatID, "members": bson.M{"$ne": userID}},
		bson.M{
			"$push": bson.M{
				"members":     userID,
				"member_meta": domain.MemberMeta{UserID: userID, Status: domain.MemberActive},
			},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return errprocess.Internal(err, "chatRepository.AddMember")
	}
	return nil
}

// RemoveMember pull userID from members, admins and metadata
func (r *chatRepository) RemoveMember(ctx context.Context, chatID, userID string) error {
	res, err := r.chats.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{
			"$pull": bson.M{
				"members":     userID,
				"admins":      userID,
				"member_meta": bson.M{"user_id": userID},
			},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return errprocess.Internal(err, "chatRepository.RemoveMember")
	}
	if res.MatchedCount == 0 {
		return errprocess.NotFound("chat not found")
	}
	return nil
}

// UpdateGroup set the non nil fields
func (r *chatRepository) UpdateGroup(ctx context.Context, chatID string, update GroupUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Avatar != nil {
		set["avatar"] = *update.Avatar
	}
	if update.Admins != nil {
		set["admins"] = update.Admins
	}

	res, err := r.chats.UpdateOne(ctx, bson.M{"_id": chatID, "is_group": true}, bson.M{"$set": set})
	if err != nil {
		return errprocess.Internal(err, "chatRepository.UpdateGroup")
	}
	if res.MatchedCount == 0 {
		return errprocess.NotFound("group not found")
	}
	return nil
}
