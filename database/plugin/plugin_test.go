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

package plugin_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/microchain/database/plugin"
	"github.com/stretchr/testify/assert"
)

type fakePlugin struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
}

func (f *fakePlugin) Start() error {
	*f.log = append(*f.log, "start "+f.name)
	return f.startErr
}

func (f *fakePlugin) Stop() error {
	*f.log = append(*f.log, "stop "+f.name)
	return f.stopErr
}

func TestStartAllStopsStartedOnFailure(t *testing.T) {
	var log []string
	startErr := errors.New("boom")
	err := plugin.StartAll(
		&fakePlugin{name: "a", log: &log},
		&fakePlugin{name: "b", log: &log},
		&fakePlugin{name: "c", startErr: startErr, log: &log},
	)
	assert.ErrorIs(t, err, startErr)
	assert.Equal(
		t,
		[]string{"start a", "start b", "start c", "stop b", "stop a"},
		log,
	)
}

func TestStopAllJoinsErrors(t *testing.T) {
	var log []string
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	err := plugin.StopAll(
		&fakePlugin{name: "a", stopErr: errA, log: &log},
		&fakePlugin{name: "b", stopErr: errB, log: &log},
	)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, []string{"stop b", "stop a"}, log)
	assert.NoError(t, plugin.StopAll())
}
