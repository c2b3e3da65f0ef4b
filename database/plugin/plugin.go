// Copyright 2025 Blink Labs Software
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

package plugin

import (
	"errors"
	"fmt"
)

// Plugin is a storage backend with a start/stop lifecycle
type Plugin interface {
	Start() error
	Stop() error
}

// StartAll starts plugins in order. If one fails, the ones already started
// are stopped again.
func StartAll(plugins ...Plugin) error {
	for i, p := range plugins {
		if err := p.Start(); err != nil {
			stopErr := StopAll(plugins[:i]...)
			return errors.Join(
				fmt.Errorf("failed to start plugin %T: %w", p, err),
				stopErr,
			)
		}
	}
	return nil
}

// StopAll stops plugins in reverse order and returns every error
func StopAll(plugins ...Plugin) error {
	var errs []error
	for i := len(plugins) - 1; i >= 0; i-- {
		if err := plugins[i].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop plugin %T: %w", plugins[i], err))
		}
	}
	return errors.Join(errs...)
}
