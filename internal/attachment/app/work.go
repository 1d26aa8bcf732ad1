package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"chat_sync_service/internal/attachment/domain"
	"chat_sync_service/internal/attachment/repository"
	"chat_sync_service/pkg/database"
	"chat_sync_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// JobSource queue the worker reads from, *amqp.Channel satisfies it
type JobSource interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Consumer thumbnail worker
type Consumer struct {
	source      JobSource
	minioClient database.MinIOClientRepo
	repo        repository.AttachmentRepo
	renderer    ThumbnailRenderer
	queueName   string
}

// NewConsumer create Consumer
func NewConsumer(source JobSource, minioClient database.MinIOClientRepo, repo repository.AttachmentRepo, renderer ThumbnailRenderer, queueName string) *Consumer {
	return &Consumer{
		source:      source,
		minioClient: minioClient,
		repo:        repo,
		renderer:    renderer,
		queueName:   queueName,
	}
}

// StartConsumer consume thumbnail jobs until ctx is done or the channel closes
func (c *Consumer) StartConsumer(ctx context.Context) error {
	msgs, err := c.source.Consume(
		c.queueName,
		"",    // consumer tag, assigned by the broker
		false, // manual ack
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queueName, err)
	}
	logger.Log.Info("thumbnail consumer started", zap.String("queue", c.queueName))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Warn("thumbnail queue channel closed")
				return nil
			}
			c.handle(ctx, d)
		case <-ctx.Done():
			logger.Log.Info("thumbnail consumer stopped")
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var job domain.ThumbnailJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.AttachmentID == "" {
		logger.Log.Error("invalid thumbnail job", zap.ByteString("body", d.Body), zap.Error(err))
		if err := d.Nack(false, false); err != nil {
			logger.Log.Error("nack failed", zap.Error(err))
		}
		return
	}

	if err := c.processThumbnailJob(ctx, job); err != nil {
		logger.Log.Error("thumbnail job failed", zap.String("attachment_id", job.AttachmentID), zap.Error(err))
		c.markFailed(ctx, job.AttachmentID)
		if err := d.Nack(false, false); err != nil {
			logger.Log.Error("nack failed", zap.Error(err))
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Log.Error("ack failed", zap.String("attachment_id", job.AttachmentID), zap.Error(err))
		return
	}
	logger.Log.Info("thumbnail ready", zap.String("attachment_id", job.AttachmentID))
}

// processThumbnailJob download the original, render, upload, mark ready
func (c *Consumer) processThumbnailJob(ctx context.Context, job domain.ThumbnailJob) error {
	attachment, err := c.repo.GetByID(ctx, job.AttachmentID)
	if err != nil {
		return err
	}
	if attachment.Status == string(domain.AttachmentReady) {
		return nil
	}

	obj, err := c.minioClient.GetObject(ctx, attachment.ObjectKey)
	if err != nil {
		return err
	}
	defer obj.Close()

	thumb, err := c.renderer.Render(ctx, domain.FileType(attachment.FileType), obj)
	if err != nil {
		return err
	}

	key := ThumbnailKey(attachment.ID)
	if err := c.minioClient.PutObject(ctx, key, "image/jpeg", bytes.NewReader(thumb), int64(len(thumb))); err != nil {
		return err
	}

	attachment.ThumbnailKey = key
	attachment.Status = string(domain.AttachmentReady)
	return c.repo.Update(ctx, attachment)
}

func (c *Consumer) markFailed(ctx context.Context, id string) {
	attachment, err := c.repo.GetByID(ctx, id)
	if err != nil {
		logger.Log.Warn("mark failed: attachment lookup", zap.String("attachment_id", id), zap.Error(err))
		return
	}
	attachment.Status = string(domain.AttachmentFailed)
	if err := c.repo.Update(ctx, attachment); err != nil {
		logger.Log.Error("mark failed: update", zap.String("attachment_id", id), zap.Error(err))
	}
}
