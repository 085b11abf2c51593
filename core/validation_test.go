package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBill(t *testing.T) {
	t.Run("valid bill", func(t *testing.T) {
		bill := &Bill{
			BillID:      1635340,
			BillNumber:  "HB101",
			BillType:    "B",
			Title:       "An act relating to education funding",
			Description: "Revises the state education funding formula.",
		}
		require.NoError(t, ValidateBill(bill))
	})

	t.Run("nil bill", func(t *testing.T) {
		err := ValidateBill(nil)
		assert.ErrorIs(t, err, ErrInvalidBill)
	})

	t.Run("zero bill id", func(t *testing.T) {
		err := ValidateBill(&Bill{Title: "t"})
		assert.ErrorIs(t, err, ErrInvalidBill)
		assert.ErrorIs(t, err, ErrMissingExternalID)
	})

	t.Run("empty title", func(t *testing.T) {
		err := ValidateBill(&Bill{BillID: 1})
		assert.ErrorIs(t, err, ErrEmptyTitle)
	})

	t.Run("embedding not required", func(t *testing.T) {
		bill := &Bill{BillID: 2, Title: "t"}
		assert.Nil(t, bill.Embedding)
		require.NoError(t, ValidateBill(bill))
	})
}

func TestValidateSponsor(t *testing.T) {
	t.Run("valid sponsor", func(t *testing.T) {
		require.NoError(t, ValidateSponsor(&Sponsor{
			SponsorID: 7,
			Name:      "A",
			Party:     "D",
			District:  "12",
			Role:      "Senator",
		}))
	})

	t.Run("nil sponsor", func(t *testing.T) {
		assert.ErrorIs(t, ValidateSponsor(nil), ErrInvalidSponsor)
	})

	t.Run("missing name", func(t *testing.T) {
		assert.ErrorIs(t, ValidateSponsor(&Sponsor{SponsorID: 7}), ErrEmptyName)
	})

	t.Run("missing id", func(t *testing.T) {
		assert.ErrorIs(t, ValidateSponsor(&Sponsor{Name: "A"}), ErrMissingExternalID)
	})
}

func TestValidateRollCall(t *testing.T) {
	valid := RollCall{
		RollCallID: 901,
		BillID:     1635340,
		Date:       time.Date(2023, 3, 14, 0, 0, 0, 0, time.UTC),
		Yea:        30,
		Nay:        20,
		Passed:     true,
		Chamber:    "S",
		ChamberID:  74,
	}

	t.Run("valid roll call", func(t *testing.T) {
		rc := valid
		require.NoError(t, ValidateRollCall(&rc))
	})

	t.Run("negative tally", func(t *testing.T) {
		rc := valid
		rc.Absent = -1
		assert.ErrorIs(t, ValidateRollCall(&rc), ErrInvalidRollCall)
	})

	t.Run("empty chamber", func(t *testing.T) {
		rc := valid
		rc.Chamber = ""
		assert.ErrorIs(t, ValidateRollCall(&rc), ErrInvalidRollCall)
	})

	t.Run("unknown bill id allowed", func(t *testing.T) {
		// FK enforcement happens at store time, not here.
		rc := valid
		rc.BillID = 999999999
		require.NoError(t, ValidateRollCall(&rc))
	})
}

func TestValidateVoteValue(t *testing.T) {
	for _, v := range []VoteValue{VoteYea, VoteNay, VoteNV, VoteAbsent} {
		assert.NoError(t, ValidateVoteValue(v))
	}
	assert.ErrorIs(t, ValidateVoteValue("Present"), ErrInvalidVoteValue)
	assert.ErrorIs(t, ValidateVoteValue(""), ErrInvalidVoteValue)
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("done").Valid())
}

func TestFileCategoryValid(t *testing.T) {
	for _, c := range []FileCategory{CategoryBill, CategoryVote, CategoryPeople} {
		assert.True(t, c.Valid())
	}
	assert.False(t, FileCategory("sponsor").Valid())
}

func TestTableInfoColumnNames(t *testing.T) {
	info := &TableInfo{
		TableName: "voter_new_records",
		Columns: map[string]ColumnInfo{
			"registration_date": {Type: "TIMESTAMP"},
			"county_code":       {Type: "VARCHAR"},
			"voter_status":      {Type: "VARCHAR"},
		},
	}
	assert.Equal(t, []string{"county_code", "registration_date", "voter_status"}, info.ColumnNames())
}
