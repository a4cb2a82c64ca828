package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/domain/event"
	"github.com/trackex/realtime-status/internal/core/domain/license"
	"github.com/trackex/realtime-status/internal/core/ports"
	"github.com/trackex/realtime-status/internal/utils"
)

const licenseKeyPrefix = "license:"

// LicenseService serves the cached fast-check path the agents poll and applies
// admin state changes, each of which invalidates the cached snapshot and pushes
// a notification to the affected employee's stream and the global scope.
type LicenseService struct {
	repo   ports.LicenseRepository
	cache  ports.TieredCache
	hub    ports.BroadcastHub
	email  ports.EmailService
	logger *logrus.Logger
}

func NewLicenseService(repo ports.LicenseRepository, cache ports.TieredCache, hub ports.BroadcastHub, email ports.EmailService, logger *logrus.Logger) ports.LicenseService {
	return &LicenseService{repo: repo, cache: cache, hub: hub, email: email, logger: logger}
}

func (s *LicenseService) Check(ctx context.Context, employeeID string) (*license.CheckResult, error) {
	key := licenseKeyPrefix + employeeID
	if data, ok := s.cache.Get(ctx, key); ok {
		var res license.CheckResult
		if err := json.Unmarshal(data, &res); err == nil {
			return &res, nil
		}
		// A corrupt cached payload is treated as a miss, never surfaced.
		s.cache.Invalidate(ctx, key)
	}

	l, err := s.repo.GetByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	res := &license.CheckResult{
		EmployeeID: l.EmployeeID,
		Valid:      l.Valid(),
		Status:     l.Status,
		Tier:       l.Tier,
		ExpiresAt:  l.ExpiresAt,
		CheckedAt:  time.Now(),
	}
	if data, err := json.Marshal(res); err == nil {
		s.cache.Set(ctx, key, data)
	}
	return res, nil
}

func (s *LicenseService) Apply(ctx context.Context, employeeID string, req *license.UpdateLicenseRequest) (*license.License, error) {
	l, err := s.repo.GetByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	evType, err := applyAction(l, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, l); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"employee_id": employeeID, "action": req.Action}).WithError(err).Error("failed to update license in repo")
		}
		return nil, fmt.Errorf("failed to apply license action: %w", err)
	}

	s.cache.Invalidate(ctx, licenseKeyPrefix+employeeID)
	s.notify(l, evType)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"employee_id": employeeID, "action": req.Action, "status": l.Status}).Info("license updated")
	}
	return l, nil
}

// applyAction mutates the license in place and returns the event type to
// broadcast for the transition.
func applyAction(l *license.License, req *license.UpdateLicenseRequest) (event.Type, error) {
	switch req.Action {
	case "renew":
		l.Status = license.StatusActive
		if req.ExpiresAt != nil {
			l.ExpiresAt = req.ExpiresAt
		} else {
			renewed := time.Now().AddDate(1, 0, 0)
			l.ExpiresAt = &renewed
		}
		return event.TypeLicenseRenewed, nil
	case "revoke":
		l.Status = license.StatusRevoked
		return event.TypeLicenseRevoked, nil
	case "activate":
		l.Status = license.StatusActive
		return event.TypeLicenseActivated, nil
	case "update":
		if req.Status != nil {
			l.Status = license.LicenseStatus(*req.Status)
		}
		if req.Tier != nil {
			l.Tier = *req.Tier
		}
		if req.ExpiresAt != nil {
			l.ExpiresAt = req.ExpiresAt
		}
		if l.Status == license.StatusExpired {
			return event.TypeLicenseExpired, nil
		}
		return event.TypeLicenseUpdated, nil
	default:
		return "", fmt.Errorf("unknown license action %q", req.Action)
	}
}

// notify broadcasts the transition and, when the seat stopped being valid,
// sends a best-effort alert email to the tenant admin.
func (s *LicenseService) notify(l *license.License, evType event.Type) {
	ev := event.New(evType)
	ev.EmployeeID = l.EmployeeID
	ev.Valid = event.BoolPtr(l.Valid())
	ev.Status = string(l.Status)
	ev.Tier = l.Tier
	if l.ExpiresAt != nil {
		ev.ExpiresAt = l.ExpiresAt.UTC().Format(time.RFC3339)
	}

	s.hub.Broadcast(event.EmployeeKey(l.EmployeeID), ev)
	s.hub.Broadcast(event.KeyAll, ev)

	if !l.Valid() && s.email != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.email.SendLicenseAlert(ctx, l, string(evType)); err != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"employee_id": l.EmployeeID}).WithError(err).Warn("failed to send license alert email")
		}
	}
}

func (s *LicenseService) VerifyDeviceToken(ctx context.Context, employeeID, token string) (*license.License, error) {
	l, err := s.repo.GetByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	needsUpgrade, err := utils.VerifyDeviceToken(l.DeviceTokenHash, token)
	if err != nil {
		return nil, err
	}

	if needsUpgrade {
		// Legacy hash verified; migrate the stored credential to the current
		// format. Failure to persist the upgrade is not fatal for the request.
		if hash, hashErr := utils.HashDeviceToken(token); hashErr == nil {
			if updErr := s.repo.UpdateDeviceTokenHash(ctx, employeeID, hash); updErr != nil && s.logger != nil {
				s.logger.WithFields(logrus.Fields{"employee_id": employeeID}).WithError(updErr).Warn("failed to upgrade legacy device token hash")
			}
		}
	}
	return l, nil
}
