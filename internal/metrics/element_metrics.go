package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/open-beagle/gst-element/internal/gstreamer"
)

// ElementMetrics 元素状态机指标，由消息总线驱动
type ElementMetrics struct {
	transitions *prometheus.CounterVec
	errors      *prometheus.CounterVec
	state       *prometheus.GaugeVec
	delivery    *prometheus.HistogramVec
}

// NewElementMetrics 在 r 上注册元素指标
func NewElementMetrics(r *Registry) (*ElementMetrics, error) {
	transitions, err := r.Counter("element_transitions_total",
		"State transition steps by outcome",
		"element", "factory", "from", "to", "result")
	if err != nil {
		return nil, fmt.Errorf("failed to register transitions counter: %w", err)
	}

	errors, err := r.Counter("element_errors_total",
		"Error notifications by forced-error code",
		"element", "factory", "code")
	if err != nil {
		return nil, fmt.Errorf("failed to register errors counter: %w", err)
	}

	state, err := r.Gauge("element_state",
		"Current element state code (1=NULL, 2=READY, 3=PAUSED, 4=PLAYING)",
		"element", "factory")
	if err != nil {
		return nil, fmt.Errorf("failed to register state gauge: %w", err)
	}

	delivery, err := r.Histogram("bus_delivery_seconds",
		"Delay between a notification being raised and reaching the metrics handler",
		[]float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		"type")
	if err != nil {
		return nil, fmt.Errorf("failed to register delivery histogram: %w", err)
	}

	return &ElementMetrics{
		transitions: transitions,
		errors:      errors,
		state:       state,
		delivery:    delivery,
	}, nil
}

// HandleMessage 更新与消息对应的指标，可直接作为总线处理器使用
func (em *ElementMetrics) HandleMessage(msg gstreamer.Message) {
	if !msg.Timestamp.IsZero() {
		em.delivery.WithLabelValues(string(msg.Type)).Observe(time.Since(msg.Timestamp).Seconds())
	}

	switch msg.Type {
	case gstreamer.MessageStateChanged:
		em.transitions.WithLabelValues(msg.Source, msg.Factory, msg.OldState.String(), msg.NewState.String(), "success").Inc()
		em.state.WithLabelValues(msg.Source, msg.Factory).Set(float64(msg.NewState))

	case gstreamer.MessageError:
		em.transitions.WithLabelValues(msg.Source, msg.Factory, msg.OldState.String(), msg.NewState.String(), "failure").Inc()
		code := 0
		if msg.Error != nil {
			code = msg.Error.Code
		}
		em.errors.WithLabelValues(msg.Source, msg.Factory, strconv.Itoa(code)).Inc()
	}
}
