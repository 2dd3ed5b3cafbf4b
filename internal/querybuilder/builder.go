// Package querybuilder implements a shared contract for every
// resource×verb pair: every query always filters by organization_id,
// mutations that return rows use RETURNING with an explicit column list, and
// id-array and search/sort clauses are built the same way regardless of
// which resource table they target. The
// dynamic placeholder-counting approach ($1, $2, ...) generalizes the
// argIdx pattern internal/db/users.go uses in UpdateUserFields into a
// reusable type instead of repeating it per query.
package querybuilder

import (
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
)

// Builder accumulates a parameterized SQL statement.
type Builder struct {
	sql  strings.Builder
	args []interface{}
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Push appends literal SQL text.
func (b *Builder) Push(sql string) *Builder {
	b.sql.WriteString(sql)
	return b
}

// Bind appends a `$N` placeholder bound to value and returns the placeholder
// text, so callers can interpolate it inline: b.Push("id = ").Push(b.Bind(id)).
func (b *Builder) Bind(value interface{}) string {
	b.args = append(b.args, value)
	return "$" + strconv.Itoa(len(b.args))
}

// PushBind is shorthand for Push(Bind(value)).
func (b *Builder) PushBind(value interface{}) *Builder {
	return b.Push(b.Bind(value))
}

// Build returns the accumulated SQL text and its bound arguments.
func (b *Builder) Build() (string, []interface{}) {
	return b.sql.String(), b.args
}

// OrganizationIDFilter appends "organization_id = $N", the filter every
// query in this system carries.
func (b *Builder) OrganizationIDFilter(orgID ids.ID) *Builder {
	return b.Push("organization_id = ").PushBind(orgID.String())
}

// IDsFilter appends "<column> = ANY($N)" binding a Postgres text array via
// pq.Array, for id-list filters such as those of Get and Delete.
func (b *Builder) IDsFilter(column string, idList []ids.ID) *Builder {
	return b.Push(column + " = ANY(").PushBind(pq.Array(ids.Strings(idList))).Push(")")
}

// SearchOptions carries the pagination/sort parameters a Get request DTO may
// supply.
type SearchOptions struct {
	Limit   int
	Offset  int
	OrderBy string
}

// orderableColumns is the whitelist of ORDER BY targets. OrderBy is the one
// place caller input reaches SQL text rather than a bind parameter, so it is
// checked against this set instead of being interpolated freely.
var orderableColumns = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"updated_at": {},
}

// ApplySearchOptions appends ORDER BY/LIMIT/OFFSET clauses, defaulting the
// order to "created_at ASC" and capping Limit at 1000 so a caller can't force
// an unbounded scan. An OrderBy outside the whitelist returns InvalidArgument.
func (b *Builder) ApplySearchOptions(opts SearchOptions) (*Builder, *errors.AppError) {
	column, direction := "created_at", "ASC"
	if opts.OrderBy != "" {
		parts := strings.Fields(opts.OrderBy)
		column = parts[0]
		if len(parts) > 1 {
			direction = strings.ToUpper(parts[1])
		}
		if _, ok := orderableColumns[column]; !ok || len(parts) > 2 || (direction != "ASC" && direction != "DESC") {
			return nil, errors.InvalidArgument("unsupported order_by: " + opts.OrderBy)
		}
	}
	b.Push(" ORDER BY " + column + " " + direction)

	limit := opts.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	b.Push(" LIMIT ").PushBind(limit)

	if opts.Offset > 0 {
		b.Push(" OFFSET ").PushBind(opts.Offset)
	}
	return b, nil
}

// Returning appends a RETURNING clause; mutations in this system always
// return the full row (or the columns a caller needs to drive a second
// step, as recording deletion does) rather than requiring a follow-up Get.
func (b *Builder) Returning(columns string) *Builder {
	return b.Push(" RETURNING " + columns)
}
