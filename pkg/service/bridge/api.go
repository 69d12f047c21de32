//    Copyright 2017 Ewout Prangsma
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

// API of the bridge, the hardware the lights are wired to.
type API interface {
	// Access to local GPIO

	// Returns number of local pins
	PinCount() int
	// Output initializes a GPIO output pin with the given pin number
	// and initial logical value.
	Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error)

	// Access to pulse width modulation outputs
	PWMSource

	Close() error
}

// PWMSource is implemented by everything that offers PWM channels.
type PWMSource interface {
	// Returns number of PWM channels
	PWMChannelCount() int
	// PWM opens the PWM output with given channel (0...).
	PWM(channel int) (PWMOutput, error)
}

// OutputPin is the interface satisfied by GPIO output pins.
type OutputPin interface {
	Write(bool) error
}

// PWMOutput is the interface satisfied by PWM channels.
type PWMOutput interface {
	// Configure the frequency of the output and enable it.
	Configure(frequency uint32) error
	// SetDuty sets the duty cycle to duty/max.
	SetDuty(duty, max uint32) error
	// Close disables the output.
	Close() error
}
