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

import "fmt"

// ValidateBill validates a Bill according to domain rules.
//
// Validation rules:
//   - BillID must be a positive external id
//   - Title must not be empty
//
// NOT validated (populated later in the pipeline):
//   - Embedding (empty until the bulk processor runs)
//   - InferredCategories (empty until classification runs)
func ValidateBill(bill *Bill) error {
	if bill == nil {
		return fmt.Errorf("%w: bill is nil", ErrInvalidBill)
	}
	if bill.BillID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidBill, ErrMissingExternalID)
	}
	if bill.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBill, ErrEmptyTitle)
	}
	return nil
}

// ValidateSponsor validates a Sponsor according to domain rules.
func ValidateSponsor(sponsor *Sponsor) error {
	if sponsor == nil {
		return fmt.Errorf("%w: sponsor is nil", ErrInvalidSponsor)
	}
	if sponsor.SponsorID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSponsor, ErrMissingExternalID)
	}
	if sponsor.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSponsor, ErrEmptyName)
	}
	return nil
}

// ValidateRollCall validates a RollCall according to domain rules.
// BillID is deliberately not checked against the bills table here; the
// foreign key is enforced at store time and may legitimately fail when
// the referenced bill has not been imported yet.
func ValidateRollCall(rc *RollCall) error {
	if rc == nil {
		return fmt.Errorf("%w: roll call is nil", ErrInvalidRollCall)
	}
	if rc.RollCallID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRollCall, ErrMissingExternalID)
	}
	if rc.Yea < 0 || rc.Nay < 0 || rc.NV < 0 || rc.Absent < 0 {
		return fmt.Errorf("%w: vote tallies cannot be negative", ErrInvalidRollCall)
	}
	if rc.Chamber == "" {
		return fmt.Errorf("%w: chamber cannot be empty", ErrInvalidRollCall)
	}
	return nil
}

// ValidateVoteValue validates that a vote value belongs to the closed
// enumeration {Yea, Nay, NV, Absent}.
func ValidateVoteValue(v VoteValue) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidVoteValue, string(v))
	}
	return nil
}
