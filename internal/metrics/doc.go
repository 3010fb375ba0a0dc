// Package metrics exposes fridge readings to Prometheus.
//
// A Collector is fed by session.PollLoop through Observe and keeps gauges
// for power, temperatures per zone and battery, plus counters for poll
// results and session traffic. Router serves them with two companion
// endpoints:
//
//	GET /metrics   Prometheus text format
//	GET /status    last status report as JSON
//	GET /healthz   200 while the fridge answers
//
// # Metrics
//
//	icebox_online{fridge}
//	icebox_powered_on{fridge}
//	icebox_target_temperature{fridge,zone,unit}
//	icebox_current_temperature{fridge,zone,unit}
//	icebox_battery_voltage_volts{fridge}
//	icebox_battery_charge_percent{fridge}   absent while the charge is unknown
//	icebox_last_success_timestamp_seconds{fridge}
//	icebox_polls_total{fridge,result}       result is ok, timeout or error
//	icebox_frames_sent_total{fridge}
//	icebox_frames_received_total{fridge}
//	icebox_frame_errors_total{fridge}
//	icebox_timeouts_total{fridge}
//
// Each Collector owns its registry, so several can run in one process
// without clashing with the default Prometheus registry.
package metrics
