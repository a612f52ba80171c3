// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"roapctl/internal/bridge"
	"roapctl/internal/config"
	"roapctl/internal/device"
	"roapctl/internal/logger"
	"roapctl/internal/metrics"
	"roapctl/internal/roap"
)

var (
	bridgeBroker    string
	bridgeNoMetrics bool
	bridgeDebug     bool
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Bridge configured TVs to an MQTT broker",
	Long: `Run every TV in the config file behind MQTT.
Actions published to <prefix>/<device>/action are sent to the TV and the
result is published to <prefix>/<device>/result. Request counts and
latencies are served for Prometheus.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.SetSilentMode(false)
		if bridgeDebug || verbose {
			logger.SetLevel(logger.LOG_DEBUG)
		}
		logger.ConfigureFromEnv()

		log := logger.New()

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if bridgeBroker != "" {
			cfg.MQTT.Broker = bridgeBroker
		}
		if len(cfg.Devices) == 0 {
			return fmt.Errorf("no devices in %s", configPath)
		}

		log.Info().
			Str("config", configPath).
			Str("broker", cfg.MQTT.Broker).
			Int("devices", len(cfg.Devices)).
			Msg("Starting bridge")

		collector := metrics.NewCollector()
		devices := make([]device.Device, 0, len(cfg.Devices))
		for _, d := range cfg.Devices {
			client, err := d.NewClient(roap.WithObserver(collector.ForDevice(d.ID)))
			if err != nil {
				return fmt.Errorf("device %s: %w", d.ID, err)
			}
			devices = append(devices, roap.NewRemote(d.ID, client))
		}

		mqttClient := bridge.NewClient(cfg.MQTT)
		if err := mqttClient.Connect(); err != nil {
			return err
		}
		defer mqttClient.Disconnect()

		b := bridge.New(cfg.MQTT.TopicPrefix, mqttClient, devices,
			bridge.WithCache(bridge.NewResponseCache(bridge.DefaultCacheSize, bridge.DefaultCacheExpiration)))

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		errChan := make(chan error, 2)

		go func() {
			if err := b.Run(ctx); err != nil {
				errChan <- fmt.Errorf("bridge error: %w", err)
			}
		}()

		var metricsServer *http.Server
		if !bridgeNoMetrics {
			handler, err := metrics.Handler(collector)
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, handler)
			metricsServer = &http.Server{
				Addr:              cfg.Metrics.Listen,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				log.Info().
					Str("address", cfg.Metrics.Listen).
					Str("path", cfg.Metrics.Path).
					Msg("Serving metrics")
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- fmt.Errorf("metrics server error: %w", err)
				}
			}()
		}

		// Handle graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
		case err := <-errChan:
			log.Error().Err(err).Msg("Service error")
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("Shutting down bridge")
		cancel()

		if metricsServer != nil {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Error stopping metrics server")
			}
		}

		log.Info().Msg("Bridge stopped")
		return nil
	},
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeBroker, "broker", "", "MQTT broker host, overrides the config file")
	bridgeCmd.Flags().BoolVar(&bridgeNoMetrics, "no-metrics", false, "do not serve Prometheus metrics")
	bridgeCmd.Flags().BoolVarP(&bridgeDebug, "debug", "d", false, "enable debug logging")
}
