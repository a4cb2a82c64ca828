package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/domain/event"
	"github.com/trackex/realtime-status/internal/core/ports"
)

const agentVersionKey = "agent:version"

// AgentVersionService caches the published agent build and announces releases
// on the global stream scope so every connected agent learns about an update
// without polling.
type AgentVersionService struct {
	repo   ports.AgentVersionRepository
	cache  ports.TieredCache
	hub    ports.BroadcastHub
	logger *logrus.Logger
}

func NewAgentVersionService(repo ports.AgentVersionRepository, cache ports.TieredCache, hub ports.BroadcastHub, logger *logrus.Logger) ports.AgentVersionService {
	return &AgentVersionService{repo: repo, cache: cache, hub: hub, logger: logger}
}

func (s *AgentVersionService) Current(ctx context.Context) (string, error) {
	if data, ok := s.cache.Get(ctx, agentVersionKey); ok {
		return string(data), nil
	}
	version, err := s.repo.Latest(ctx)
	if err != nil {
		return "", err
	}
	if version != "" {
		s.cache.Set(ctx, agentVersionKey, []byte(version))
	}
	return version, nil
}

func (s *AgentVersionService) Publish(ctx context.Context, version string) error {
	if version == "" {
		return fmt.Errorf("agent version must not be empty")
	}
	if err := s.repo.Insert(ctx, version); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, agentVersionKey)

	ev := event.New(event.TypeAgentVersionReleased)
	ev.Version = version
	s.hub.Broadcast(event.KeyAll, ev)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"version": version}).Info("agent version published")
	}
	return nil
}
