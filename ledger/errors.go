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

package ledger

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/microchain/types"
)

var (
	ErrMissingGenesis   = errors.New("missing genesis action")
	ErrDuplicateGenesis = errors.New("duplicate genesis action")
	ErrUnknownAction    = errors.New("unknown action")
)

type UnknownActionError struct {
	name types.Name
}

func NewUnknownActionError(name types.Name) UnknownActionError {
	return UnknownActionError{name: name}
}

func (e UnknownActionError) Name() types.Name {
	return e.name
}

func (e UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %s", e.name)
}

func (e UnknownActionError) Unwrap() error {
	return ErrUnknownAction
}

// ReplayFault describes one action that could not be applied. The action's
// partial changes were undone and the rest of its block was still applied.
type ReplayFault struct {
	BlockNum       uint32
	SourceBlockNum uint32
	TransactionID  types.Checksum256
	ActionIndex    int
	Action         types.Name
	Err            error
}

func (f ReplayFault) Error() string {
	return fmt.Sprintf(
		"block %d (source block %d) transaction %s action %d (%s): %s",
		f.BlockNum,
		f.SourceBlockNum,
		f.TransactionID,
		f.ActionIndex,
		f.Action,
		f.Err,
	)
}

func (f ReplayFault) Unwrap() error {
	return f.Err
}
