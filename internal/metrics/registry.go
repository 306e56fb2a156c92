// Package metrics publica contadores, gauges e histogramas en formato Prometheus. Los vectores se
// crean la primera vez que se reporta un nombre; reportar nunca bloquea ni falla.
package metrics

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lavamusic"

type Registry struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:        reg,
		counters:   map[string]*prometheus.CounterVec{},
		gauges:     map[string]*prometheus.GaugeVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
}

// Handler sirve /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Inc suma 1. labels va de a pares: "action", "skip", "kind", "forbidden".
func (r *Registry) Inc(name string, labels ...string) {
	keys, values := split(labels)
	r.mu.Lock()
	vec, ok := r.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help(name)}, keys)
		vec = register(r.reg, vec)
		r.counters[name] = vec
	}
	r.mu.Unlock()
	if vec == nil {
		return
	}
	if c, err := vec.GetMetricWithLabelValues(values...); err == nil {
		c.Inc()
	}
}

func (r *Registry) Set(name string, v float64, labels ...string) {
	keys, values := split(labels)
	r.mu.Lock()
	vec, ok := r.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help(name)}, keys)
		vec = register(r.reg, vec)
		r.gauges[name] = vec
	}
	r.mu.Unlock()
	if vec == nil {
		return
	}
	if g, err := vec.GetMetricWithLabelValues(values...); err == nil {
		g.Set(v)
	}
}

// Observe usa los buckets por defecto (pensados para segundos).
func (r *Registry) Observe(name string, v float64, labels ...string) {
	keys, values := split(labels)
	r.mu.Lock()
	vec, ok := r.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help(name),
			Buckets:   prometheus.DefBuckets,
		}, keys)
		vec = register(r.reg, vec)
		r.histograms[name] = vec
	}
	r.mu.Unlock()
	if vec == nil {
		return
	}
	if o, err := vec.GetMetricWithLabelValues(values...); err == nil {
		o.Observe(v)
	}
}

// register devuelve nil si el nombre ya existe con otro tipo; ese nombre queda descartado.
func register[V prometheus.Collector](reg *prometheus.Registry, vec V) V {
	if err := reg.Register(vec); err != nil {
		var zero V
		return zero
	}
	return vec
}

// split separa los pares ordenados por nombre de label. Una label sin valor se descarta.
func split(labels []string) (keys, values []string) {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		pairs = append(pairs, pair{labels[i], labels[i+1]})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })
	for _, p := range pairs {
		keys = append(keys, p.k)
		values = append(values, p.v)
	}
	return keys, values
}

func help(name string) string { return strings.ReplaceAll(name, "_", " ") }
