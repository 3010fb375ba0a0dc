package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/muurk/icebox/internal/protocol"
	"github.com/muurk/icebox/internal/session"
)

const namespace = "icebox"

// Collector turns poll results into Prometheus metrics for one fridge.
// Every metric carries a constant "fridge" label.
type Collector struct {
	registry *prometheus.Registry

	online         prometheus.Gauge
	poweredOn      prometheus.Gauge
	targetTemp     *prometheus.GaugeVec
	currentTemp    *prometheus.GaugeVec
	batteryVoltage prometheus.Gauge
	batteryCharge  prometheus.Gauge
	lastSuccess    prometheus.Gauge
	polls          *prometheus.CounterVec

	mu      sync.Mutex
	last    *protocol.Status
	lastErr error
	updated time.Time
}

// NewCollector registers the fridge metrics on a fresh registry. stats, when
// not nil, is read at scrape time for the session traffic counters.
func NewCollector(fridge string, stats func() session.Stats) *Collector {
	labels := prometheus.Labels{"fridge": fridge}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help, ConstLabels: labels,
		})
	}

	c := &Collector{
		registry:       prometheus.NewRegistry(),
		online:         gauge("online", "1 when the last poll succeeded"),
		poweredOn:      gauge("powered_on", "1 when the fridge reports it is switched on"),
		batteryVoltage: gauge("battery_voltage_volts", "Supply voltage"),
		batteryCharge:  gauge("battery_charge_percent", "Battery charge, absent when unknown"),
		lastSuccess:    gauge("last_success_timestamp_seconds", "Unix time of the last successful poll"),
		targetTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "target_temperature",
			Help: "Target temperature in the fridge's unit", ConstLabels: labels,
		}, []string{"zone", "unit"}),
		currentTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "current_temperature",
			Help: "Measured temperature in the fridge's unit", ConstLabels: labels,
		}, []string{"zone", "unit"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "polls_total",
			Help: "Status polls by result", ConstLabels: labels,
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		c.online, c.poweredOn, c.batteryVoltage, c.lastSuccess,
		c.targetTemp, c.currentTemp, c.polls,
	)

	if stats != nil {
		counter := func(name, help string, value func(session.Stats) uint64) prometheus.Collector {
			return prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace, Name: name, Help: help, ConstLabels: labels,
			}, func() float64 { return float64(value(stats())) })
		}
		c.registry.MustRegister(
			counter("frames_sent_total", "Frames written to the fridge",
				func(s session.Stats) uint64 { return s.FramesSent }),
			counter("frames_received_total", "Valid frames received",
				func(s session.Stats) uint64 { return s.FramesReceived }),
			counter("frame_errors_total", "Inbound notifications that failed to decode",
				func(s session.Stats) uint64 { return s.FrameErrors }),
			counter("timeouts_total", "Requests that got no response in time",
				func(s session.Stats) uint64 { return s.Timeouts }),
		)
	}
	return c
}

// Registry returns the registry holding the fridge metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records one poll. It matches the callback taken by
// session.PollLoop.
func (c *Collector) Observe(status *protocol.Status, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = err
	if err != nil {
		c.online.Set(0)
		if session.IsTimeout(err) {
			c.polls.WithLabelValues("timeout").Inc()
		} else {
			c.polls.WithLabelValues("error").Inc()
		}
		return
	}

	c.polls.WithLabelValues("ok").Inc()
	c.last = status
	c.updated = time.Now()

	c.online.Set(1)
	c.poweredOn.Set(boolValue(status.PoweredOn))
	c.batteryVoltage.Set(status.BatteryVoltage.Volts())
	c.lastSuccess.Set(float64(c.updated.Unix()))

	// Unit changes would otherwise leave a stale series behind
	c.targetTemp.Reset()
	c.currentTemp.Reset()
	unit := strings.ToLower(status.Unit.String())
	c.targetTemp.WithLabelValues("left", unit).Set(float64(status.LeftTarget))
	c.currentTemp.WithLabelValues("left", unit).Set(float64(status.LeftCurrent))
	if status.Right != nil {
		c.targetTemp.WithLabelValues("right", unit).Set(float64(status.Right.Target))
		c.currentTemp.WithLabelValues("right", unit).Set(float64(status.Right.Current))
	}

	if status.Battery.Known() {
		c.batteryCharge.Set(float64(status.Battery))
		// An unknown charge has no sample
		_ = c.registry.Register(c.batteryCharge)
	} else {
		c.registry.Unregister(c.batteryCharge)
	}
}

// Snapshot returns the last successful status, when it was taken, and the
// most recent poll error
func (c *Collector) Snapshot() (*protocol.Status, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.updated, c.lastErr
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
