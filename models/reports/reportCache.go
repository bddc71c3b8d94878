package reports

import (
	"context"
	"time"

	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/utils"
	"github.com/sirupsen/logrus"
)

// cachedReport serves name from Redis when report caching is on, otherwise builds it.
// A fresh build is stored back with the configured TTL. Cache failures never fail the report.
func cachedReport[T any](ctx context.Context, name string, build func(ctx context.Context, now time.Time) (*T, error)) (*T, error) {
	key := "Report:" + name
	caching := config.ReportCacheEnabled()
	if caching {
		var cached T
		if ok, err := config.GetRedisObject(key, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	started := time.Now()
	resp, err := build(ctx, started.UTC())
	if err != nil {
		return nil, err
	}
	logSlowReport(ctx, name, started, nil)

	if caching {
		if err := config.SetRedisObject(key, resp, config.ReportCacheTTL()); err != nil {
			config.LogError(config.GetLogger(), "reports/reportCache.go", "cachedReport", "cache "+name, nil, err)
		}
	}
	return resp, nil
}

func logSlowReport(ctx context.Context, name string, started time.Time, extra logrus.Fields) {
	elapsed := time.Since(started)
	if elapsed < config.ReportSlowThreshold() {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             elapsed.Milliseconds(),
		"correlation_id": cid,
	}).WithFields(extra).Warn("slow_report")
}
