package kafka

// Topic definitions for the recommendation request/response exchange
const (
	TopicRecommendationRequest  = "recommendation.request"
	TopicRecommendationResponse = "recommendation.response"
)
