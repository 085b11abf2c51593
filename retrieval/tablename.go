package retrieval

import (
	"regexp"
	"strings"
)

var createTablePattern = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?(\S+)`)

// ExtractTableName pulls the table name out of a CREATE TABLE
// statement. Schema qualifiers and quoting are stripped; the bare
// table name is returned. Returns ErrNoTableName when the text has no
// CREATE TABLE statement at all.
func ExtractTableName(ddl string) (string, error) {
	match := createTablePattern.FindStringSubmatch(ddl)
	if match == nil {
		return "", ErrNoTableName
	}
	name := match[1]
	// "CREATE TABLE foo(" captures the paren along with the name.
	if idx := strings.IndexByte(name, '('); idx >= 0 {
		name = name[:idx]
	}
	// Keep only the final segment of a schema-qualified name.
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.Trim(name, `"`)
	if name == "" {
		return "", ErrNoTableName
	}
	return name, nil
}
