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

package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/service/lights"
	"github.com/binkynet/LightWorker/pkg/service/util"
)

const (
	// QosAtMostOnce represents "QoS 0: At most once delivery".
	QosAtMostOnce = byte(0)
	// QosAsLeastOnce represents "QoS 1: At least once delivery".
	QosAsLeastOnce = byte(1)
	// QosDefault is used for state & log messages
	QosDefault = QosAtMostOnce

	publishTimeout = time.Millisecond * 200
	connectTimeout = time.Second * 5
)

var (
	NotConnectedError = errors.New("not connected")
	IsNotConnected    = func(err error) bool { return errors.Cause(err) == NotConnectedError }

	maskAny = errors.WithStack
)

type Config struct {
	// Broker address, e.g. tcp://127.0.0.1:1883
	Broker   string
	Prefix   string
	ClientID string
	UserName string
	Password string
}

type Dependencies struct {
	Log    zerolog.Logger
	Lights lights.Service
}

// Service contains the API exposed by the MQTT service.
type Service interface {
	// Run the service until the given context is canceled.
	// Reconnects when the connection is lost.
	Run(ctx context.Context) error
	// Publish a JSON encoded message into a topic.
	Publish(ctx context.Context, msg interface{}, topic string, qos byte, retained bool) error
}

type service struct {
	Config
	Dependencies

	mutex  sync.Mutex
	client mqttapi.Client
}

// NewService instantiates a new MQTT service.
func NewService(conf Config, deps Dependencies) (Service, error) {
	if conf.Broker == "" {
		return nil, errors.New("broker must not be empty")
	}
	conf.Prefix = strings.TrimSuffix(conf.Prefix, "/")
	deps.Log = deps.Log.With().Str("component", "mqtt").Logger()
	return &service{
		Config:       conf,
		Dependencies: deps,
	}, nil
}

// Run the service until the given context is canceled.
func (s *service) Run(ctx context.Context) error {
	return util.UntilCanceled(ctx, s.Log, "mqtt connection", func() error {
		return s.runConnection(ctx)
	})
}

// runConnection connects to the broker and serves until
// the connection is lost or the context is canceled.
func (s *service) runConnection(ctx context.Context) error {
	lost := make(chan error, 1)
	opts := mqttapi.NewClientOptions().
		AddBroker(s.Broker).
		SetClientID(s.ClientID).
		SetUsername(s.UserName).
		SetPassword(s.Password)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(func(c mqttapi.Client, err error) {
		select {
		case lost <- err:
		default:
		}
	})
	opts.SetDefaultPublishHandler(func(c mqttapi.Client, m mqttapi.Message) {
		// Ignore messages when no subscription match
	})

	// Connect client
	client := mqttapi.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(connectTimeout) {
		return errors.Errorf("timeout connecting to '%s'", s.Broker)
	} else if err := token.Error(); err != nil {
		return errors.Wrapf(err, "failed to connect to '%s'", s.Broker)
	}
	defer client.Disconnect(250)
	log := s.Log.With().Str("broker", s.Broker).Logger()
	log.Info().Msg("Connected to MQTT broker")

	topic := s.Prefix + "/+/effect"
	if token := client.Subscribe(topic, QosAsLeastOnce, s.onMessage); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "failed to subscribe to '%s'", topic)
	}

	s.mutex.Lock()
	s.client = client
	s.mutex.Unlock()
	defer func() {
		s.mutex.Lock()
		s.client = nil
		s.mutex.Unlock()
	}()

	// Publish all light changes
	leave := s.Lights.Subscribe(func(evt lights.Event) {
		s.publishState(ctx, evt.Light)
	})
	defer leave()
	for _, l := range s.Lights.Lights() {
		s.publishState(ctx, l.Name())
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-lost:
		return errors.Wrap(err, "connection lost")
	}
}

// Receive effect requests
func (s *service) onMessage(client mqttapi.Client, msg mqttapi.Message) {
	if err := s.handleEffect(msg.Topic(), msg.Payload()); err != nil {
		s.Log.Warn().Err(err).Str("topic", msg.Topic()).Msg("Failed to handle effect request")
	}
}

// handleEffect applies an effect request received on the given topic.
func (s *service) handleEffect(topic string, payload []byte) error {
	name, ok := s.lightFromTopic(topic)
	if !ok {
		return errors.Errorf("unexpected topic '%s'", topic)
	}
	l, found := s.Lights.LightByName(name)
	if !found {
		return errors.Errorf("unknown light '%s'", name)
	}
	req, err := lights.ParseEffectRequest(payload)
	if err != nil {
		return err
	}
	effectMessagesTotal.WithLabelValues(name).Inc()
	if err := req.Apply(l); err != nil {
		return err
	}
	return nil
}

// lightFromTopic returns the light name in <prefix>/<light>/effect.
func (s *service) lightFromTopic(topic string) (string, bool) {
	rest := strings.TrimPrefix(topic, s.Prefix+"/")
	if rest == topic || !strings.HasSuffix(rest, "/effect") {
		return "", false
	}
	name := strings.TrimSuffix(rest, "/effect")
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// stateTopic returns the topic the state of the given light is published on.
func (s *service) stateTopic(name string) string {
	return s.Prefix + "/" + name + "/state"
}

// publishState publishes the status of the light with given name.
func (s *service) publishState(ctx context.Context, name string) {
	l, found := s.Lights.LightByName(name)
	if !found {
		return
	}
	if err := s.Publish(ctx, l.Status(), s.stateTopic(name), QosDefault, true); err != nil {
		s.Log.Debug().Err(err).Str("light", name).Msg("Failed to publish state")
	}
}

// Publish a JSON encoded message into a topic.
func (s *service) Publish(ctx context.Context, msg interface{}, topic string, qos byte, retained bool) error {
	encodedMsg, err := json.Marshal(msg)
	if err != nil {
		return maskAny(err)
	}
	s.mutex.Lock()
	client := s.client
	s.mutex.Unlock()
	if client == nil {
		return maskAny(NotConnectedError)
	}
	token := client.Publish(topic, qos, retained, encodedMsg)
	if !token.WaitTimeout(publishTimeout) {
		publishFailuresTotal.Inc()
		return errors.Errorf("failed to deliver message to '%s' in time", topic)
	}
	if err := token.Error(); err != nil {
		publishFailuresTotal.Inc()
		return maskAny(err)
	}
	return nil
}
