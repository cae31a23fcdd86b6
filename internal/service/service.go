package service

import (
	"log/slog"

	"chat_relay/internal/repository"
)

type Services struct {
	Messages repository.MessageRepository
	Hub      *Hub
}

func NewServices(repos *repository.Repositories, opts Options, log *slog.Logger) *Services {
	hub := NewHub(repos.Message, NewSessionRegistry(log), opts, log)

	return &Services{
		Messages: repos.Message,
		Hub:      hub,
	}
}
