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

package environment

import (
	"bytes"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	// BridgeTypeRPI drives lights through Raspberry Pi GPIO & PWM.
	BridgeTypeRPI = "rpi"
	// BridgeTypeVirtual keeps all output levels in memory.
	BridgeTypeVirtual = "virtual"

	deviceTreeModel = "/proc/device-tree/model"
)

// AutoDetectBridgeType detects the default bridge type based on the environment.
func AutoDetectBridgeType(log zerolog.Logger) string {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		log.Warn().Err(err).Msg("Uname failed, using virtual bridge")
		return BridgeTypeVirtual
	}
	machine := string(bytes.TrimRight(name.Machine[:], "\x00"))
	model, _ := os.ReadFile(deviceTreeModel)
	bridgeType := detectBridgeType(machine, string(model))
	log.Debug().
		Str("machine", machine).
		Str("bridge", bridgeType).
		Msg("Detected bridge type")
	return bridgeType
}

// detectBridgeType selects a bridge type from the machine
// architecture & the device tree model.
func detectBridgeType(machine, model string) string {
	if !strings.HasPrefix(machine, "arm") && !strings.HasPrefix(machine, "aarch64") {
		return BridgeTypeVirtual
	}
	if strings.Contains(model, "Raspberry Pi") {
		return BridgeTypeRPI
	}
	return BridgeTypeVirtual
}
