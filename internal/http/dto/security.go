package dto

import "caretaker.app/relay/internal/model"

type RotateSecretRequest struct {
	Secret string `json:"secret"`
}

type SecurityMetricsResponse struct {
	Items []model.SecurityMetric `json:"items"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
