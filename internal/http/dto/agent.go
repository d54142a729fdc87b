package dto

import "caretaker.app/relay/internal/model"

type RegisterAgentRequest struct {
	Name        string `json:"name"`
	CallbackURL string `json:"callbackUrl"`
	Token       string `json:"token,omitempty"`
}

type QueuedResponse struct {
	Queued   bool   `json:"queued"`
	Priority string `json:"priority"`
}

type ReviewsResponse struct {
	Items []model.ValidatedReview `json:"items"`
}

type DeadLettersResponse struct {
	Items []string `json:"items"`
}

type QueueDepthResponse struct {
	Lanes map[string]int64 `json:"lanes"`
}
