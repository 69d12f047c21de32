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

package config

import (
	"bytes"
	"os"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/service/bridge"
	"github.com/binkynet/LightWorker/pkg/service/devices"
)

const (
	DefaultHTTPPort    = 7130
	DefaultSSHPort     = 7132
	DefaultMQTTPrefix  = "binkynet/lights"
	DefaultMQTTClient  = "light-worker"
	DefaultPinCount    = 8
	DefaultPWMChannels = 4
)

var (
	InvalidConfigError = errors.New("invalid config")
	IsInvalidConfig    = isErrorFunc(InvalidConfigError)
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}

// Config is the configuration of the light worker.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	MQTT    MQTTConfig    `toml:"mqtt"`
	Bridge  BridgeConfig  `toml:"bridge"`
	PWM     PWMConfig     `toml:"pwm"`
	PCA9685 PCA9685Config `toml:"pca9685"`
	Lights  []LightConfig `toml:"lights"`
}

type LogConfig struct {
	// Log level (debug|info|warn|error)
	Level string `toml:"level"`
	// If set, logs are also published on <mqtt.prefix>/logs
	MQTT bool `toml:"mqtt"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	HTTPPort int    `toml:"http-port"`
	// Set to 0 to disable the SSH UI
	SSHPort int `toml:"ssh-port"`
	// Path of the SSH host key (created when missing)
	HostKeyPath string `toml:"host-key-path"`
}

type MQTTConfig struct {
	// Broker address, e.g. tcp://127.0.0.1:1883. Empty disables MQTT.
	Broker   string `toml:"broker"`
	Prefix   string `toml:"prefix"`
	ClientID string `toml:"client-id"`
	UserName string `toml:"username"`
	Password string `toml:"password"`
}

type BridgeConfig struct {
	// Type of bridge (rpi|virtual). Empty means auto detect.
	Type string `toml:"type"`
	// Number of pins & channels of the virtual bridge
	PinCount    int `toml:"pin-count"`
	PWMChannels int `toml:"pwm-channels"`
}

type PWMConfig struct {
	// Frequency in Hz
	Frequency uint32 `toml:"frequency"`
}

type PCA9685Config struct {
	// I2C address of the controller. 0 means there is no controller.
	Address uint8 `toml:"address"`
	// Location of the I2C bus
	Bus string `toml:"bus"`
	// GPIO pin of SCL used to recover a locked bus. Negative disables recovery.
	SCLPin int `toml:"scl-pin"`
}

// LightConfig describes a single light.
type LightConfig struct {
	Name string `toml:"name"`
	// pwm | binary | pca9685
	Output    string `toml:"output"`
	Pin       int    `toml:"pin"`
	ActiveLow bool   `toml:"active-low"`
	// Level posted when the worker starts
	InitialLevel uint8 `toml:"initial-level"`
	// Overrides pwm.frequency
	Frequency uint32 `toml:"frequency"`
}

// Default returns a configuration with all defaults and no lights.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level: zerolog.InfoLevel.String(),
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    DefaultHTTPPort,
			SSHPort:     DefaultSSHPort,
			HostKeyPath: ".ssh/id_ed25519",
		},
		MQTT: MQTTConfig{
			Prefix:   DefaultMQTTPrefix,
			ClientID: DefaultMQTTClient,
		},
		Bridge: BridgeConfig{
			PinCount:    DefaultPinCount,
			PWMChannels: DefaultPWMChannels,
		},
		PWM: PWMConfig{
			Frequency: devices.DefaultPWMFrequency,
		},
		PCA9685: PCA9685Config{
			Bus:    bridge.DefaultPCA9685Bus,
			SCLPin: -1,
		},
	}
}

// Load the configuration from the TOML file with given path.
// Missing values are set to their defaults.
// An empty path results in the default configuration.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config '%s'", path)
	}
	return Parse(data)
}

// Parse the configuration from given TOML content.
func Parse(data []byte) (Config, error) {
	result := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	for i := range result.Lights {
		l := &result.Lights[i]
		if l.Output == "" {
			l.Output = string(devices.OutputTypePWM)
		}
		if l.Frequency == 0 {
			l.Frequency = result.PWM.Frequency
		}
	}
	if err := result.Validate(); err != nil {
		return Config{}, err
	}
	return result, nil
}

// Validate the configuration, returning all problems found.
func (c Config) Validate() error {
	var ae aerr.AggregateError
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		ae.Add(errors.Errorf("invalid log level '%s'", c.Log.Level))
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		ae.Add(errors.Errorf("invalid http-port %d", c.Server.HTTPPort))
	}
	if c.Server.SSHPort < 0 || c.Server.SSHPort > 65535 {
		ae.Add(errors.Errorf("invalid ssh-port %d", c.Server.SSHPort))
	}
	switch c.Bridge.Type {
	case "", "rpi", "virtual":
	default:
		ae.Add(errors.Errorf("unknown bridge type '%s'", c.Bridge.Type))
	}
	if c.PCA9685.Address != 0 && (c.PCA9685.Address < 0x03 || c.PCA9685.Address > 0x77) {
		ae.Add(errors.Errorf("invalid pca9685 address 0x%02x", c.PCA9685.Address))
	}
	if c.MQTT.Broker != "" && c.MQTT.Prefix == "" {
		ae.Add(errors.New("mqtt prefix must not be empty"))
	}
	names := make(map[string]struct{})
	for i, l := range c.Lights {
		if l.Name == "" {
			ae.Add(errors.Errorf("light %d has no name", i))
			continue
		}
		if _, found := names[l.Name]; found {
			ae.Add(errors.Errorf("duplicate light '%s'", l.Name))
		}
		names[l.Name] = struct{}{}
		switch devices.OutputType(l.Output) {
		case devices.OutputTypePWM, devices.OutputTypeBinary:
		case devices.OutputTypePCA9685:
			if c.PCA9685.Address == 0 {
				ae.Add(errors.Errorf("light '%s' uses pca9685 output but no pca9685 address is configured", l.Name))
			}
		default:
			ae.Add(errors.Errorf("light '%s' has unknown output '%s'", l.Name, l.Output))
		}
		if l.Pin < 0 {
			ae.Add(errors.Errorf("light '%s' has invalid pin %d", l.Name, l.Pin))
		}
	}
	if err := ae.AsError(); err != nil {
		return errors.Wrap(InvalidConfigError, err.Error())
	}
	return nil
}

// OutputConfig returns the device configuration of the given light.
func (l LightConfig) OutputConfig() devices.OutputConfig {
	return devices.OutputConfig{
		Name:      l.Name,
		Type:      devices.OutputType(l.Output),
		Pin:       l.Pin,
		ActiveLow: l.ActiveLow,
		Frequency: l.Frequency,
	}
}
