//    Copyright 2023 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package bridge

import (
	"github.com/pkg/errors"

	"github.com/binkynet/LightWorker/pkg/metrics"
)

const (
	subSystem = "bridge"
)

var (
	// Total number of sysfs PWM attribute writes
	pwmWritesTotal = metrics.MustRegisterCounterVec(subSystem,
		"pwm_writes_total",
		"Total number of sysfs PWM attribute writes",
		"channel")
	// Total number of failed sysfs PWM attribute writes
	pwmWriteErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"pwm_write_errors_total",
		"Total number of failed sysfs PWM attribute writes")
	// Total number of I2C bus operations
	i2cExecuteTotal = metrics.MustRegisterCounterVec(subSystem,
		"i2c_execute_total",
		"Total number of I2C bus operations",
		"address")
	// Total number of failed I2C bus operations
	i2cExecuteErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"i2c_execute_errors_total",
		"Total number of failed I2C bus operations",
		"address")
	// Total number of I2C bus recoveries
	i2cRecoveriesTotal = metrics.MustRegisterCounterVec(subSystem,
		"i2c_recoveries_total",
		"Total number of I2C bus recovery attempts",
		"result")

	maskAny = errors.WithStack
)
