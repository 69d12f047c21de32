// Copyright 2026 Ewout Prangsma
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
//
// Author Ewout Prangsma
//

package main

import (
	"context"
	"fmt"
	"os"
	"reflect"

	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/LightWorker/pkg/config"
	"github.com/binkynet/LightWorker/pkg/environment"
	"github.com/binkynet/LightWorker/pkg/logging"
	"github.com/binkynet/LightWorker/pkg/server"
	"github.com/binkynet/LightWorker/pkg/service/bridge"
	"github.com/binkynet/LightWorker/pkg/service/lights"
	"github.com/binkynet/LightWorker/pkg/service/mqtt"
	"github.com/binkynet/LightWorker/pkg/ui"
)

const (
	projectName = "BinkyNet Light Worker"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var configPath string
	var levelFlag string
	var bridgeType string
	var serverHost string
	var httpPort int
	var sshPort int
	var mqttBroker string
	var mqttPrefix string

	pflag.StringVarP(&configPath, "config", "c", "", "Path of the configuration file")
	pflag.StringVarP(&levelFlag, "level", "l", "", "Set log level (overrides config)")
	pflag.StringVarP(&bridgeType, "bridge", "b", "", "Type of bridge to use (rpi|virtual)")
	pflag.StringVar(&serverHost, "host", "", "Host address the HTTP & SSH servers will listen on")
	pflag.IntVar(&httpPort, "http-port", 0, "Port the HTTP server will listen on")
	pflag.IntVar(&sshPort, "ssh-port", 0, "Port the SSH server will listen on")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "Address of the MQTT broker, e.g. tcp://127.0.0.1:1883")
	pflag.StringVar(&mqttPrefix, "mqtt-prefix", "", "Prefix of all MQTT topics")
	pflag.Parse()

	conf, err := config.Load(configPath)
	if err != nil {
		Exitf("Failed to load configuration: %v\n", err)
	}
	flags := pflag.CommandLine
	if flags.Changed("level") {
		conf.Log.Level = levelFlag
	}
	if flags.Changed("bridge") {
		conf.Bridge.Type = bridgeType
	}
	if flags.Changed("host") {
		conf.Server.Host = serverHost
	}
	if flags.Changed("http-port") {
		conf.Server.HTTPPort = httpPort
	}
	if flags.Changed("ssh-port") {
		conf.Server.SSHPort = sshPort
	}
	if flags.Changed("mqtt-broker") {
		conf.MQTT.Broker = mqttBroker
	}
	if flags.Changed("mqtt-prefix") {
		conf.MQTT.Prefix = mqttPrefix
	}
	if err := conf.Validate(); err != nil {
		Exitf("Invalid configuration: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mqttLogWriter := logging.NewMQTTWriter(ctx)
	mqttLogWriter.Enable(conf.Log.MQTT)
	logger := zerolog.New(logging.NewMultiWriter(
		zerolog.ConsoleWriter{Out: os.Stderr},
		mqttLogWriter,
	)).With().Timestamp().Logger()
	applyLogLevel(logger, conf.Log.Level)

	if conf.Bridge.Type == "" {
		conf.Bridge.Type = environment.AutoDetectBridgeType(logger)
	}
	var br bridge.API
	switch conf.Bridge.Type {
	case environment.BridgeTypeRPI:
		br, err = bridge.NewRaspberryPiBridge()
		if err != nil {
			Exitf("Failed to initialize Raspberry Pi Bridge: %v\n", err)
		}
	case environment.BridgeTypeVirtual:
		br, err = bridge.NewVirtualBridge(conf.Bridge.PinCount, conf.Bridge.PWMChannels)
		if err != nil {
			Exitf("Failed to initialize virtual Bridge: %v\n", err)
		}
	default:
		Exitf("Unknown bridge type '%s' (rpi|virtual)\n", conf.Bridge.Type)
	}
	defer br.Close()

	var pca *bridge.PCA9685
	if conf.PCA9685.Address != 0 {
		bus, err := bridge.NewI2CBus(conf.PCA9685.Bus, conf.PCA9685.SCLPin, logger)
		if err != nil {
			Exitf("Failed to open I2C bus: %v\n", err)
		}
		defer bus.Close()
		pca = bridge.NewPCA9685(bus, conf.PCA9685.Address, logger)
		defer pca.Close()
	}

	lightsDeps := lights.Dependencies{
		Log:    logger,
		Bridge: br,
	}
	if pca != nil {
		lightsDeps.PCA9685 = pca
	}
	lightsSvc, err := lights.NewService(lights.Config{
		Lights: conf.Lights,
	}, lightsDeps)
	if err != nil {
		// Lights that could be created are still served
		logger.Error().Err(err).Msg("Failed to create some lights")
	}
	if err := lightsSvc.Configure(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to configure some lights")
	}
	defer func() {
		if err := lightsSvc.Close(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to close lights")
		}
	}()

	httpServer, err := server.New(server.Config{
		Host:        conf.Server.Host,
		HTTPPort:    conf.Server.HTTPPort,
		SSHPort:     conf.Server.SSHPort,
		HostKeyPath: conf.Server.HostKeyPath,
	}, logger, ui.New(lightsSvc), lightsSvc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	var mqttSvc mqtt.Service
	if conf.MQTT.Broker != "" {
		mqttSvc, err = mqtt.NewService(mqtt.Config{
			Broker:   conf.MQTT.Broker,
			Prefix:   conf.MQTT.Prefix,
			ClientID: conf.MQTT.ClientID,
			UserName: conf.MQTT.UserName,
			Password: conf.MQTT.Password,
		}, mqtt.Dependencies{
			Log:    logger,
			Lights: lightsSvc,
		})
		if err != nil {
			Exitf("Failed to initialize MQTT service: %v\n", err)
		}
		mqttLogWriter.SetDestination(conf.MQTT.Prefix+"/logs", mqttSvc)
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return lightsSvc.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	if mqttSvc != nil {
		g.Go(func() error { return mqttSvc.Run(ctx) })
	}
	if configPath != "" {
		g.Go(func() error {
			return config.Watch(ctx, configPath, logger, func(updated config.Config) {
				if !flags.Changed("level") {
					applyLogLevel(logger, updated.Log.Level)
				}
				mqttLogWriter.Enable(updated.Log.MQTT)
				if !reflect.DeepEqual(updated.Lights, conf.Lights) {
					logger.Warn().Msg("Light configuration changed; restart to apply")
				}
			})
		})
	}
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %#v", err)
	}
}

// applyLogLevel sets the global log level.
func applyLogLevel(logger zerolog.Logger, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		logger.Warn().Str("level", level).Msg("Invalid log level")
		return
	}
	zerolog.SetGlobalLevel(lvl)
	logger.Info().Str("level", lvl.String()).Msg("Log level set")
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
