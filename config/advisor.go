package config

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/setanarut/inksep"
	"github.com/setanarut/inksep/rediscache"
)

// NewAdvisor returns the rule table when no oracle endpoint is set, and an
// oracle advisor over the configured cache backend otherwise. An unreachable
// Redis degrades to the in-memory cache. The returned func releases the
// cache connection.
func (c *Config) NewAdvisor(ctx context.Context, log *zap.Logger) (inksep.Advisor, func() error) {
	noop := func() error { return nil }
	if !c.Oracle.Enabled() {
		log.Info("oracle disabled, using rule-based advice")
		return inksep.RuleAdvisor{}, noop
	}

	var cache inksep.Cache = inksep.NopCache{}
	closeCache := noop
	switch c.Cache.Backend {
	case "memory":
		cache = inksep.NewMemoryCache()
	case "redis":
		rc := rediscache.New(rediscache.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			TTL:      c.Redis.TTL,
			Prefix:   c.Redis.Prefix,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("redis connection failed, using memory cache", zap.Error(err))
			rc.Close()
			cache = inksep.NewMemoryCache()
		} else {
			log.Info("redis connected", zap.String("addr", c.Redis.Addr))
			cache = rc
			closeCache = rc.Close
		}
	}

	oracle := &inksep.HTTPOracle{
		Endpoint: c.Oracle.Endpoint,
		APIKey:   c.Oracle.APIKey,
		Model:    c.Oracle.Model,
		Client:   &http.Client{},
	}
	advisor := inksep.NewOracleAdvisor(oracle,
		inksep.WithCache(cache),
		inksep.WithTimeout(c.Oracle.Timeout),
		inksep.WithOracleLogger(log.Named("oracle")))
	log.Info("oracle enabled",
		zap.String("endpoint", c.Oracle.Endpoint),
		zap.String("cache", c.Cache.Backend))
	return advisor, closeCache
}
