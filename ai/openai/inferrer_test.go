package openai

import (
	"testing"

	"github.com/poiesic/legisearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInfo() *core.TableInfo {
	return &core.TableInfo{
		FileName:  "tbl_prod_GABU202012_new_records.csv",
		TableName: "voter_new_records",
		Summary:   "New voter registration records including county, status and registration dates for recently added voters",
		Columns: map[string]core.ColumnInfo{
			"county_code":       {Type: "VARCHAR", Description: "county identifier"},
			"registration_date": {Type: "TIMESTAMP", Description: "date of registration"},
		},
	}
}

func TestValidateTableInfo(t *testing.T) {
	t.Run("valid schema", func(t *testing.T) {
		require.NoError(t, validateTableInfo(validInfo(), nil))
	})

	t.Run("missing voter prefix", func(t *testing.T) {
		info := validInfo()
		info.TableName = "new_records"
		assert.Error(t, validateTableInfo(info, nil))
	})

	t.Run("injection in table name", func(t *testing.T) {
		info := validInfo()
		info.TableName = "voter_x; DROP TABLE bills--"
		assert.Error(t, validateTableInfo(info, nil))
	})

	t.Run("collision with existing table", func(t *testing.T) {
		info := validInfo()
		assert.Error(t, validateTableInfo(info, []string{"voter_new_records"}))
	})

	t.Run("bad column identifier", func(t *testing.T) {
		info := validInfo()
		info.Columns["bad name"] = core.ColumnInfo{Type: "VARCHAR"}
		assert.Error(t, validateTableInfo(info, nil))
	})

	t.Run("unsupported column type", func(t *testing.T) {
		info := validInfo()
		info.Columns["flag"] = core.ColumnInfo{Type: "CHAR(1)"}
		assert.Error(t, validateTableInfo(info, nil))
	})

	t.Run("no columns", func(t *testing.T) {
		info := validInfo()
		info.Columns = nil
		assert.Error(t, validateTableInfo(info, nil))
	})
}
