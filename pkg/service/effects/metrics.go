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

package effects

import (
	"github.com/binkynet/LightWorker/pkg/metrics"
)

const (
	subSystem = "effects"
)

var (
	// Number of executed steps per worker
	stepsTotal = metrics.MustRegisterCounterVec(subSystem,
		"steps_total",
		"Number of executed effect steps",
		"light")
	// Number of adopted commands per worker & kind
	adoptionsTotal = metrics.MustRegisterCounterVec(subSystem,
		"adoptions_total",
		"Number of commands adopted as live effect",
		"light", "kind")
	// Number of baseline restores per worker
	baselineRestoresTotal = metrics.MustRegisterCounterVec(subSystem,
		"baseline_restores_total",
		"Number of times the baseline effect was restored",
		"light")
	// Number of failed posts per worker
	postFailuresTotal = metrics.MustRegisterCounterVec(subSystem,
		"post_failures_total",
		"Number of commands that could not be delivered to a worker",
		"light")
)
