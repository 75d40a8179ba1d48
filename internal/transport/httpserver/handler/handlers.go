package handler

import (
	"context"

	membershipdomain "gym-access-go/internal/domain/membership"
	reportsdomain "gym-access-go/internal/domain/reports"
	"gym-access-go/pkg/logger"
)

// Pinger reports whether the store answers.
type Pinger func(ctx context.Context) error

type Handlers struct {
	Members *membershipdomain.Service
	Reports *reportsdomain.Service
	ping    Pinger
	log     logger.Logger
}

func New(members *membershipdomain.Service, reports *reportsdomain.Service, ping Pinger, log logger.Logger) *Handlers {
	return &Handlers{
		Members: members,
		Reports: reports,
		ping:    ping,
		log:     log,
	}
}
