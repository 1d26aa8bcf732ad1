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

// MessageRepository definition message document store
type MessageRepository interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	FindByIDs(ctx context.Context, messageIDs []string) ([]domain.Message, error)
	FindVisible(ctx context.Context, chatID string, page domain.Page) ([]domain.Message, error)
	UpdateContent(ctx context.Context, messageID, content string, at time.Time) error
	SoftDelete(ctx context.Context, messageID string, at time.Time) error
	Delete(ctx context.Context, messageID string) error
	MarkReadBy(ctx context.Context, chatID, userID string, at time.Time) (int64, error)
	MarkDelivered(ctx context.Context, messageID string) error
}

type messageRepository struct {
	messages *mongo.Collection
}

// NewMongoMessageRepository create message repository on db
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{messages: db.Collection(domain.MessageCollection)}
}

func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("chat_created"),
	})
	if err != nil {
		return errprocess.Internal(err, "messageRepository.EnsureIndexes")
	}
	return nil
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	if _, err := r.messages.InsertOne(ctx, msg); err != nil {
		return errprocess.Internal(err, "messageRepository.Insert")
	}
	return nil
}

// FindByID soft deleted messages included
func (r *messageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	if err := r.messages.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errprocess.NotFound("message not found")
		}
		return nil, errprocess.Internal(err, "messageRepository.FindByID")
	}
	return &msg, nil
}

func (r *messageRepository) FindByIDs(ctx context.Context, messageIDs []string) ([]domain.Message, error) {
	msgs := []domain.Message{}
	if len(messageIDs) == 0 {
		return msgs, nil
	}
	cursor, err := r.messages.Find(ctx, bson.M{"_id": bson.M{"$in": messageIDs}})
	if err != nil {
		return nil, errprocess.Internal(err, "messageRepository.FindByIDs")
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, errprocess.Internal(err, "messageRepository.FindByIDs")
	}
	return msgs, nil
}

// FindVisible non deleted messages older than page.Before, oldest first
func (r *messageRepository) FindVisible(ctx context.Context, chatID string, page domain.Page) ([]domain.Message, error) {
	filter := bson.M{"chat_id": chatID, "deleted.is_deleted": bson.M{"$ne": true}}
	if page.Before != nil {
		filter["created_at"] = bson.M{"$lt": *page.Before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(page.Limit))

	cursor, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, errprocess.Internal(err, "messageRepository.FindVisible")
	}
	defer cursor.Close(ctx)

	msgs := []domain.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, errprocess.Internal(err, "messageRepository.FindVisible")
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepository) updateByID(ctx context.Context, messageID string, update bson.M, op string) error {
	res, err := r.messages.UpdateOne(ctx, bson.M{"_id": messageID}, update)
	if err != nil {
		return errprocess.Internal(err, op)
	}
	if res.MatchedCount == 0 {
		return errprocess.NotFound("message not found")
	}
	return nil
}

func (r *messageRepository) UpdateContent(ctx context.Context, messageID, content string, at time.Time) error {
	return r.updateByID(ctx, messageID, bson.M{"$set": bson.M{
		"content":          content,
		"edited.is_edited": true,
		"edited.edited_at": at,
		"updated_at":       at,
	}}, "messageRepository.UpdateContent")
}

func (r *messageRepository) SoftDelete(ctx context.Context, messageID string, at time.Time) error {
	return r.updateByID(ctx, messageID, bson.M{"$set": bson.M{
		"deleted.is_deleted": true,
		"deleted.deleted_at": at,
		"updated_at":         at,
	}}, "messageRepository.SoftDelete")
}

func (r *messageRepository) Delete(ctx context.Context, messageID string) error {
	res, err := r.messages.DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return errprocess.Internal(err, "messageRepository.Delete")
	}
	if res.DeletedCount == 0 {
		return errprocess.NotFound("message not found")
	}
	return nil
}

// MarkReadBy add a receipt for userID on every message of the chat it did not send
func (r *messageRepository) MarkReadBy(ctx context.Context, chatID, userID string, at time.Time) (int64, error) {
	res, err := r.messages.UpdateMany(ctx,
		bson.M{
			"chat_id":         chatID,
			"sender_id":       bson.M{"$ne": userID},
			"read_by.user_id": bson.M{"$ne": userID},
		},
		bson.M{
			"$push": bson.M{"read_by": domain.ReadReceipt{UserID: userID, ReadAt: at}},
			"$set":  bson.M{"status": domain.StatusRead},
		},
	)
	if err != nil {
		return 0, errprocess.Internal(err, "messageRepository.MarkReadBy")
	}
	return res.ModifiedCount, nil
}

// MarkDelivered sent -> delivered, never downgrades
func (r *messageRepository) MarkDelivered(ctx context.Context, messageID string) error {
	_, err := r.messages.UpdateOne(ctx,
		bson.M{"_id": messageID, "status": domain.StatusSent},
		bson.M{"$set": bson.M{"status": domain.StatusDelivered}},
	)
	if err != nil {
		return errprocess.Internal(err, "messageRepository.MarkDelivered")
	}
	return nil
}
