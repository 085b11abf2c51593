package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/legisearch/ai"
)

// classifierSystemPrompt instructs the model to classify a bill into the
// fixed category list and answer with scored JSON only.
var classifierSystemPrompt = fmt.Sprintf(`You are a legislative analyst. Classify the bill text into the most relevant of these categories: %s.

Respond with ONLY VALID JSON, no Markdown, in this shape:
{"categories": [{"category": "Healthcare", "score": 0.93}, {"category": "Finance", "score": 0.41}]}

Rules:
- Use only categories from the list above.
- score is a relevance number between 0 and 1.
- Include at most 5 entries, most relevant first.`, strings.Join(ai.BillCategories, ", "))

// inferrerSystemPrompt pins the model to parseable JSON output.
const inferrerSystemPrompt = "You are a helpful assistant that will provide ONLY VALID JSON responses. " +
	"JSON must be parseable. DO NOT use Markdown."

// inferrerPrompt asks the model for a table schema describing a sample of
// delimited rows. The rules mirror what the value-table DDL generator can
// actually express (VARCHAR and TIMESTAMP columns only).
func inferrerPrompt(fileName string, sample []string, excludeTableNames []string) string {
	return fmt.Sprintf(`Given rows sampled from a delimited file, provide a table summary in the following JSON format ONLY. Do not provide an explanation.
- Include a summary of the row data as a field called summary to describe the contents of the row data.
- IMPORTANT: The summary needs to be human meaningful, include the human readable table name, and run between 20 and 30 tokens.
- The table name should consist of the parts of the file name that carry semantic meaning for voter registration. Omit any text that appears to be coded. E.g. for file name tbl_prod_GABU202012_new_records.csv, omit "tbl_prod_GABU202012" and use "new_records" as part of the name.
- The table name should be in lowercase, use underscores to separate words, and must not include any special characters.
- Do NOT output a generic table name (e.g., table, my_table, voter_data).
- Do NOT make the table name one of the following: [%s].
- For each column, include the PostgreSQL type and a description relative to the data in the small sample.
- Use the Postgres TIMESTAMP type for both Date and DateTime values.
- Only use VARCHAR and TIMESTAMP column types. NO CHAR TYPES!
- Prepend voter_ to the table name for easy identification.

Output Format:
{
  "file_name": "file name",
  "table_name": "voter_the_table_name",
  "summary": "The Summary",
  "columns": {
    "column1": {
      "type": "type of column1",
      "description": "description of column1"
    }
  }
}

FILE_NAME: %s

TABULAR_DATA:
%s`, strings.Join(excludeTableNames, ", "), fileName, strings.Join(sample, "\n"))
}
