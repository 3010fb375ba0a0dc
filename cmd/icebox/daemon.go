package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/icebox/internal/metrics"
	"github.com/muurk/icebox/internal/mqtt"
	"github.com/muurk/icebox/internal/protocol"
)

func init() {
	rootCmd.AddCommand(mqttCmd)
	rootCmd.AddCommand(exporterCmd)
}

// Daemon flags
var (
	daemonInterval time.Duration
	mqttBroker     string
	mqttPrefix     string
	mqttClientID   string
	mqttUser       string
	exporterListen string
)

// mqttCmd mirrors the fridge onto MQTT topics
var mqttCmd = &cobra.Command{
	Use:   "mqtt",
	Short: "Publish fridge state to an MQTT broker",
	Long: `Poll the fridge and publish to two topics per fridge:

  <prefix>/<addr>/online   "true" or "false"
  <prefix>/<addr>/state    JSON status report, published when it changes

<addr> is the fridge's ble_addr, or its name when none is saved. A failed
poll marks the fridge offline until it answers again. The broker also
publishes "false" as a last will if icebox disconnects.

The broker password comes from ` + mqtt.PasswordEnvVar + `.`,
	Example: `  icebox mqtt --broker tcp://localhost:1883
  icebox mqtt --fridge camper --interval 30s --topic-prefix home/fridge`,
	Args: cobra.NoArgs,
	RunE: runMQTT,
}

func init() {
	mqttCmd.Flags().DurationVar(&daemonInterval, "interval", 0, "Poll interval (default preferences.poll_interval)")
	mqttCmd.Flags().StringVar(&mqttBroker, "broker", "", "Broker URL (default preferences.mqtt.broker)")
	mqttCmd.Flags().StringVar(&mqttPrefix, "topic-prefix", "", "Topic prefix (default preferences.mqtt.topic_prefix)")
	mqttCmd.Flags().StringVar(&mqttClientID, "client-id", "", "MQTT client ID")
	mqttCmd.Flags().StringVar(&mqttUser, "mqtt-user", "", "Broker username")
}

func runMQTT(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := connect(ctx)
	if err != nil {
		return fail("Connection failed", err)
	}
	defer c.Close()

	prefs := c.registry.Preferences.MQTT
	broker := firstNonEmpty(mqttBroker, prefs.Broker)
	if broker == "" {
		return fmt.Errorf("no MQTT broker: use --broker or set preferences.mqtt.broker")
	}
	prefix := firstNonEmpty(mqttPrefix, prefs.TopicPrefix)
	online, _ := mqtt.Topics(prefix, c.addr)

	client, err := mqtt.Dial(ctx, mqtt.BrokerOptions{
		Broker:    broker,
		ClientID:  firstNonEmpty(mqttClientID, prefs.ClientID),
		Username:  firstNonEmpty(mqttUser, prefs.Username),
		Password:  os.Getenv(mqtt.PasswordEnvVar),
		WillTopic: online,
		QoS:       prefs.QoS,
	})
	if err != nil {
		return fail("MQTT connection failed", err)
	}

	pub := mqtt.NewPublisher(client, c.addr, mqtt.Options{
		TopicPrefix: prefix,
		QoS:         prefs.QoS,
		Retain:      prefs.Retain,
	})
	defer func() {
		if err := pub.Close(); err != nil {
			c.log.Warn("Failed to publish offline on exit", zap.Error(err))
		}
	}()

	fmt.Fprintf(errOut, "Publishing %s to %s under %s\n", c.label, broker, prefix)
	return pollDaemon(ctx, c, daemonInterval, pub.Handle)
}

// exporterCmd serves the fridge as Prometheus metrics
var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Serve fridge readings as Prometheus metrics",
	Long: `Poll the fridge and serve its readings over HTTP:

  GET /metrics   Prometheus text format
  GET /status    last status report as JSON
  GET /healthz   200 while the fridge answers, 503 otherwise`,
	Example: `  icebox exporter --listen :9465
  icebox exporter --fridge camper --interval 1m`,
	Args: cobra.NoArgs,
	RunE: runExporter,
}

func init() {
	exporterCmd.Flags().DurationVar(&daemonInterval, "interval", 0, "Poll interval (default preferences.poll_interval)")
	exporterCmd.Flags().StringVar(&exporterListen, "listen", "", "Listen address (default preferences.exporter.listen)")
}

func runExporter(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return fail("Connection failed", err)
	}
	defer c.Close()

	listen := firstNonEmpty(exporterListen, c.registry.Preferences.Exporter.Listen)
	collector := metrics.NewCollector(c.addr, c.session.Stats)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return collector.Serve(ctx, listen) })
	g.Go(func() error { return pollDaemon(ctx, c, daemonInterval, collector.Observe) })

	fmt.Fprintf(errOut, "Exporting %s on %s\n", c.label, listen)
	if err := g.Wait(); err != nil {
		return fail("Exporter stopped", err)
	}
	return nil
}

// pollDaemon runs the poll loop for a long-lived command, recording the
// first successful poll in the registry
func pollDaemon(ctx context.Context, c *connection, interval time.Duration, fn func(*protocol.Status, error)) error {
	if interval <= 0 {
		interval = c.registry.Preferences.PollInterval
	}
	touched := false
	return c.session.PollLoop(ctx, interval, func(status *protocol.Status, err error) {
		if err != nil {
			c.log.Warn("Poll failed", zap.Error(err))
		} else if !touched {
			c.touch()
			touched = true
		}
		fn(status, err)
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
