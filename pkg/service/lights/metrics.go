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

package lights

import (
	"github.com/binkynet/LightWorker/pkg/metrics"
)

const (
	subSystem = "lights"

	reasonInvalid       = "invalid"
	reasonUndeliverable = "undeliverable"
)

var (
	// Total number of accepted effect requests per light & kind
	effectRequestsTotal = metrics.MustRegisterCounterVec(subSystem,
		"effect_requests_total",
		"Total number of accepted effect requests",
		"light", "kind")
	// Total number of rejected effect requests per light & reason
	effectRejectedTotal = metrics.MustRegisterCounterVec(subSystem,
		"effect_rejected_total",
		"Total number of rejected effect requests",
		"light", "reason")
	// Number of lights created from configuration
	lightsCreatedTotal = metrics.MustRegisterGauge(subSystem,
		"created_total",
		"Number of lights created from configuration")
	// Number of lights successfully configured
	lightsConfiguredTotal = metrics.MustRegisterGauge(subSystem,
		"configured_total",
		"Number of lights successfully configured")
)
