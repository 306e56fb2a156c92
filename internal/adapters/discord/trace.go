package discord

import (
	"time"

	"go.uber.org/zap"
)

// step mide una etapa: defer r.step("component.search.toggle")()
func (r *Router) step(label string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		r.metrics.Observe("handler_seconds", d.Seconds(), "step", label)
		r.log.Debug("trace", zap.String("step", label), zap.Duration("dur", d))
	}
}
