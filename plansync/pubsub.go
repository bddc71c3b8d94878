package plansync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
	"github.com/sirupsen/logrus"
)

// PublishSyncRun asks whichever replica receives the push to run a sync.
func PublishSyncRun(ctx context.Context, trigger string) (string, error) {
	topicName := config.SyncTopic()
	if config.SyncCreateTopic() {
		client, err := config.GetPubSubClient(ctx)
		if err != nil {
			return "", err
		}
		if _, err := config.CreateTopicIfNotExists(ctx, client, topicName); err != nil {
			return "", err
		}
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	return config.PublishJSON(ctx, topicName, SyncPubSubPayload{Trigger: trigger, CorrelationId: cid})
}

func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		messageId, err := PublishSyncRun(c.Request.Context(), "pubsub")
		if err != nil {
			config.LogError(config.GetLogger(), "plansync/pubsub.go", "TriggerSyncHandler", "publish sync run", nil, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not queue sync"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true, "message_id": messageId})
	}
}

// PubSubPushHandler always acks: a failed run is already recorded in the sync log,
// and redelivery would be an automatic retry.
func PubSubPushHandler(engine *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusNoContent)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			config.LogError(logger, "plansync/pubsub.go", "PubSubPushHandler", "Unmarshal envelope", nil, err)
			c.Status(http.StatusNoContent)
			return
		}

		var payload SyncPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			config.LogError(logger, "plansync/pubsub.go", "PubSubPushHandler", "Unmarshal payload", envelope.Message.Data, err)
			c.Status(http.StatusNoContent)
			return
		}
		if payload.Trigger == "" {
			payload.Trigger = "pubsub"
		}

		ctx := c.Request.Context()
		if payload.CorrelationId != "" {
			ctx = utils.SetCorrelationIdInContext(ctx, payload.CorrelationId)
		}
		if _, err := engine.Run(ctx, payload.Trigger); err != nil && errors.Is(err, ErrSyncInProgress) {
			logger.WithFields(logrus.Fields{
				"field":      "PubSubPushHandler",
				"message_id": envelope.Message.ID,
			}).Info("sync already running; dropping trigger")
		}
		c.Status(http.StatusNoContent)
	}
}
