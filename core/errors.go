// Copyright 2025 Poiesic Systems
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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidBill indicates a Bill failed validation.
	ErrInvalidBill = errors.New("invalid bill")

	// ErrInvalidSponsor indicates a Sponsor failed validation.
	ErrInvalidSponsor = errors.New("invalid sponsor")

	// ErrInvalidRollCall indicates a RollCall failed validation.
	ErrInvalidRollCall = errors.New("invalid roll call")

	// ErrInvalidVoteValue indicates a vote value outside the closed enumeration.
	ErrInvalidVoteValue = errors.New("invalid vote value")

	// ErrInvalidStatus indicates a status outside the tracker lifecycle.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidFileCategory indicates an unknown source file category.
	ErrInvalidFileCategory = errors.New("invalid file category")

	// ErrMissingExternalID indicates a zero external id on an imported entity.
	ErrMissingExternalID = errors.New("external id must be positive")

	// ErrEmptyTitle indicates an empty bill title.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptyName indicates an empty sponsor name.
	ErrEmptyName = errors.New("name cannot be empty")
)
