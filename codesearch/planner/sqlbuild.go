package planner

import (
	"fmt"
	"strings"

	"github.com/codesearch/codesearch/codesearch/query"
	"github.com/codesearch/codesearch/codesearch/storage"
)

// displayColumns are selected, grouped by and scanned in this order.
var displayColumns = []string{
	"repositories.project_id",
	"repositories.display_name",
	"repositories.full_name",
	"repositories.project_url",
	"repositories.avatar_url",
	"repositories.default_branch",
	"repository_files.file_path",
}

// groupColumns extends displayColumns with everything the predicate or the
// ordering may reference outside the content aggregate.
var groupColumns = append(append([]string{}, displayColumns...),
	"repository_files.file_name",
	"repository_files.branch",
	"files.sha256",
	"files.created_at",
)

// BuildSearchSQL builds the search statement for userID. The user id is
// always the first bind argument; the predicate arguments follow in AST
// order. limit <= 0 means unlimited.
func BuildSearchSQL(d storage.Dialect, b storage.Builder, q *query.Query, userID int64, limit int) (string, *CompileOutput, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(displayColumns, ", "))
	sb.WriteString(", ")
	sb.WriteString(d.ContentAggregate())
	sb.WriteString(" AS content")
	sb.WriteString(`
FROM files
INNER JOIN repository_files ON files.sha256 = repository_files.file_sha256
INNER JOIN repositories ON repository_files.project_id = repositories.project_id
INNER JOIN repository_users ON repositories.project_id = repository_users.project_id
INNER JOIN file_chunks ON files.sha256 = file_chunks.file_sha256
WHERE repository_users.user_id = `)
	sb.WriteString(b.Arg(userID))

	out, err := Compile(d, b, q)
	if err != nil {
		return "", nil, err
	}

	sb.WriteString("\nGROUP BY ")
	sb.WriteString(strings.Join(groupColumns, ", "))
	if out.Predicate != "" {
		sb.WriteString("\nHAVING ")
		sb.WriteString(out.Predicate)
	}
	sb.WriteString("\nORDER BY files.created_at DESC, repository_files.file_path ASC")
	if limit > 0 {
		sb.WriteString(fmt.Sprintf("\nLIMIT %d", limit))
	}
	return sb.String(), out, nil
}
