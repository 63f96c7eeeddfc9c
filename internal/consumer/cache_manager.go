package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MagicKrazik/ALPHA/internal/config"
	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheManager keeps each case's active alerts in Redis for dashboards.
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager creates the cache manager.
func NewCacheManager(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (c *CacheManager) activeAlertsKey(caseID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Cache.ActiveAlertsKeyPrefix,
		caseID,
		c.config.Cache.ActiveAlertsSuffix,
	)
}

// SetActiveAlerts replaces the cached active alerts of a case.
func (c *CacheManager) SetActiveAlerts(ctx context.Context, caseID string, alerts []*models.RiskAlert) error {
	if alerts == nil {
		alerts = []*models.RiskAlert{}
	}
	jsonData, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal active alerts: %w", err)
	}

	key := c.activeAlertsKey(caseID)
	if err := c.redisClient.Set(ctx, key, jsonData, c.config.Cache.ActiveAlertsTTL).Err(); err != nil {
		return fmt.Errorf("failed to set active alert cache: %w", err)
	}

	c.logger.Debug("Updated active alert cache",
		zap.String("case_id", caseID),
		zap.String("key", key),
		zap.Int("alert_count", len(alerts)),
	)
	return nil
}

// GetActiveAlerts returns the cached active alerts of a case; ok is false on a cache miss.
func (c *CacheManager) GetActiveAlerts(ctx context.Context, caseID string) (alerts []*models.RiskAlert, ok bool, err error) {
	val, err := c.redisClient.Get(ctx, c.activeAlertsKey(caseID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get active alert cache: %w", err)
	}

	if err := json.Unmarshal([]byte(val), &alerts); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal active alerts: %w", err)
	}
	return alerts, true, nil
}
