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

package devices

import (
	"github.com/binkynet/LightWorker/pkg/metrics"
)

const (
	subSystem = "devices"
)

var (
	// Last written level per light
	lightBrightness = metrics.MustRegisterGaugeVec(subSystem,
		"light_brightness",
		"Last written brightness level per light",
		"light")
	// Number of failed hardware writes per light
	sinkWriteErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"sink_write_errors_total",
		"Total number of failed hardware writes per light",
		"light")
	// Number of PWM channels in use
	channelsInUse = metrics.MustRegisterGauge(subSystem,
		"pwm_channels_in_use",
		"Number of PWM channels in use")
)
