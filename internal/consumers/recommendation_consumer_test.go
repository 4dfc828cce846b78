package consumers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaadapter "cropadvisor/internal/adapters/kafka"
	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/services/advisory"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

type published struct {
	topic string
	key   string
	body  map[string]interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	if p.err != nil {
		return p.err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{topic: topic, key: key, body: body})
	return nil
}

type fakeAnalyzer struct {
	last   advisory.Request
	result *suitability.Result
	err    error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req advisory.Request) (*suitability.Result, error) {
	a.last = req
	return a.result, a.err
}

func newTestConsumer(analyzer Analyzer, pub kafkaadapter.Publisher) *RecommendationConsumer {
	return NewRecommendationConsumer(nil, pub, analyzer, logger.Nop())
}

func msg(value string) kafka.Message {
	return kafka.Message{Topic: kafkaadapter.TopicRecommendationRequest, Value: []byte(value)}
}

func TestRecommendationConsumer_Success(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &suitability.Result{
		Prediction:      suitability.VerdictSuitable,
		Confidence:      80,
		IsSuitable:      true,
		Recommendations: []string{"Conditions are optimal."},
	}}
	pub := &fakePublisher{}
	c := newTestConsumer(analyzer, pub)

	err := c.handleMessage(context.Background(), msg(`{"id": "req-1", "data": {"stage": 1, "temperature": 25, "humidity": 60, "soil_moisture": 40}}`))
	require.NoError(t, err)

	require.Len(t, pub.sent, 1)
	sent := pub.sent[0]
	assert.Equal(t, kafkaadapter.TopicRecommendationResponse, sent.topic)
	assert.Equal(t, "req-1", sent.key)
	assert.Equal(t, "req-1", sent.body["id"])
	assert.Equal(t, "recommendation", sent.body["type"])
	assert.Equal(t, "success", sent.body["status"])
	assert.NotContains(t, sent.body, "message")

	result := sent.body["result"].(map[string]interface{})
	assert.Equal(t, "SUITABLE", result["prediction"])

	assert.Equal(t, suitability.SourceKafka, analyzer.last.Source)
	assert.Nil(t, analyzer.last.Plant)
	ph, _ := analyzer.last.Features.Get(suitability.FeaturePH)
	assert.Equal(t, suitability.DefaultPH, ph)
}

func TestRecommendationConsumer_MissingData(t *testing.T) {
	for _, payload := range []string{`{"id": 7}`, `{"id": 7, "data": null}`, `{"id": 7, "data": {}}`} {
		pub := &fakePublisher{}
		c := newTestConsumer(&fakeAnalyzer{}, pub)

		require.NoError(t, c.handleMessage(context.Background(), msg(payload)))
		require.Len(t, pub.sent, 1, payload)

		body := pub.sent[0].body
		assert.Equal(t, float64(7), body["id"], "numeric ids are echoed unchanged")
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, "Missing 'data' field in payload", body["message"])
		assert.NotContains(t, body, "result")
	}
}

func TestRecommendationConsumer_MissingIDGetsUUID(t *testing.T) {
	pub := &fakePublisher{}
	c := newTestConsumer(&fakeAnalyzer{}, pub)

	require.NoError(t, c.handleMessage(context.Background(), msg(`{"data": {}}`)))

	id, ok := pub.sent[0].body["id"].(string)
	require.True(t, ok)
	assert.Len(t, id, 36)
	assert.Equal(t, id, pub.sent[0].key)
}

func TestRecommendationConsumer_EngineError(t *testing.T) {
	pub := &fakePublisher{}
	c := newTestConsumer(&fakeAnalyzer{err: errors.ErrNotReady}, pub)

	payload := `{"id": "x", "data": {"stage": 1, "temperature": 25, "humidity": 60, "soil_moisture": 40}}`
	require.NoError(t, c.handleMessage(context.Background(), msg(payload)))

	body := pub.sent[0].body
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "not ready")
}

func TestRecommendationConsumer_InvalidData(t *testing.T) {
	pub := &fakePublisher{}
	analyzer := &fakeAnalyzer{}
	c := newTestConsumer(analyzer, pub)

	require.NoError(t, c.handleMessage(context.Background(), msg(`{"id": "x", "data": {"stage": 1}}`)))

	body := pub.sent[0].body
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "temperature")
	assert.Nil(t, analyzer.last.Features, "engine is not called for invalid data")
}

func TestRecommendationConsumer_MalformedJSONIsSkipped(t *testing.T) {
	pub := &fakePublisher{}
	c := newTestConsumer(&fakeAnalyzer{}, pub)

	err := c.handleMessage(context.Background(), msg(`{not json`))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.Empty(t, pub.sent)
}

func TestRecommendationConsumer_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.ErrUnavailable}
	c := newTestConsumer(&fakeAnalyzer{}, pub)

	err := c.handleMessage(context.Background(), msg(`{"id": "x"}`))
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}
