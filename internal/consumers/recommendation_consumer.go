package consumers

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	kafkaadapter "cropadvisor/internal/adapters/kafka"
	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/metrics"
	"cropadvisor/internal/services/advisory"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

const (
	responseType = "recommendation"

	statusSuccess = "success"
	statusError   = "error"

	messageMissingData = "Missing 'data' field in payload"
)

// Analyzer runs one analysis request
type Analyzer interface {
	Analyze(ctx context.Context, req advisory.Request) (*suitability.Result, error)
}

var _ Analyzer = (*advisory.Service)(nil)

// RecommendationRequest is the recommendation.request payload
type RecommendationRequest struct {
	ID   json.RawMessage `json:"id"`
	Data json.RawMessage `json:"data"`
}

// RecommendationResponse is the recommendation.response payload
type RecommendationResponse struct {
	ID      json.RawMessage     `json:"id"`
	Type    string              `json:"type"`
	Status  string              `json:"status"`
	Result  *suitability.Result `json:"result,omitempty"`
	Message string              `json:"message,omitempty"`
}

// RecommendationConsumer answers recommendation requests from Kafka
type RecommendationConsumer struct {
	consumer  *kafkaadapter.Consumer
	publisher kafkaadapter.Publisher
	analyzer  Analyzer
	log       *logger.Logger
}

// NewRecommendationConsumer creates a new recommendation consumer
func NewRecommendationConsumer(
	consumer *kafkaadapter.Consumer,
	publisher kafkaadapter.Publisher,
	analyzer Analyzer,
	log *logger.Logger,
) *RecommendationConsumer {
	return &RecommendationConsumer{
		consumer:  consumer,
		publisher: publisher,
		analyzer:  analyzer,
		log:       log.With("component", "recommendation_consumer"),
	}
}

// Start consumes requests until ctx is cancelled
func (c *RecommendationConsumer) Start(ctx context.Context) error {
	c.log.Infow("Starting recommendation consumer", "topic", kafkaadapter.TopicRecommendationRequest)

	defer func() {
		c.log.Info("Closing recommendation consumer...")
		if err := c.consumer.Close(); err != nil {
			c.log.Errorw("Failed to close recommendation consumer", "error", err)
		} else {
			c.log.Info("✓ Recommendation consumer closed")
		}
	}()

	for {
		msg, err := c.consumer.ReadMessageWithShutdownCheck(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Recommendation consumer stopping (context cancelled)")
				return nil
			}
			c.log.Warnw("Failed to read recommendation request", "error", err)
			continue
		}

		// Finish the current message even if shutdown starts meanwhile
		processCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = c.handleMessage(processCtx, msg)
		cancel()

		metrics.RecordKafkaMessage(msg.Topic, "consumed", err)
		if err != nil {
			c.log.Errorw("Failed to handle recommendation request",
				"offset", msg.Offset,
				"error", err,
			)
		}

		if ctx.Err() != nil {
			c.log.Info("Recommendation consumer stopping after processing current message")
			return nil
		}
	}
}

// handleMessage answers one request. Undecodable payloads are dropped
// without a reply; every other request gets exactly one response.
func (c *RecommendationConsumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var req RecommendationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "decode request: %v", err)
	}

	id := req.ID
	if isEmptyJSON(id) {
		id, _ = json.Marshal(uuid.NewString())
	}

	resp := c.respond(ctx, id, req.Data)

	err := c.publisher.Publish(ctx, kafkaadapter.TopicRecommendationResponse, string(bytes.Trim(id, `"`)), resp)
	metrics.RecordKafkaMessage(kafkaadapter.TopicRecommendationResponse, "produced", err)
	if err != nil {
		return errors.Wrap(err, "publish response")
	}

	c.log.Debugw("Sent recommendation response", "id", string(id), "status", resp.Status)
	return nil
}

func (c *RecommendationConsumer) respond(ctx context.Context, id json.RawMessage, data json.RawMessage) *RecommendationResponse {
	resp := &RecommendationResponse{ID: id, Type: responseType, Status: statusError}

	if isEmptyJSON(data) || bytes.Equal(bytes.TrimSpace(data), []byte("{}")) {
		resp.Message = messageMissingData
		return resp
	}

	var cond suitability.Conditions
	if err := json.Unmarshal(data, &cond); err != nil {
		resp.Message = errors.Wrap(errors.ErrInvalidInput, err.Error()).Error()
		return resp
	}
	if err := cond.Validate(); err != nil {
		resp.Message = err.Error()
		return resp
	}

	result, err := c.analyzer.Analyze(ctx, advisory.Request{
		Features: cond.Features(),
		Source:   suitability.SourceKafka,
	})
	if err != nil {
		resp.Message = err.Error()
		return resp
	}

	resp.Status = statusSuccess
	resp.Result = result
	return resp
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
