package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// maxListLimit caps page sizes for every list query.
const maxListLimit = 500

// listQuery appends time filters, newest-first ordering and paging to a
// SELECT over a table with a created_at column. where holds any extra
// conditions already bound to args.
func listQuery(base string, where []string, args []any, opts domain.ListOpts) (string, []any) {
	conds := append([]string(nil), where...)
	if opts.Since != nil {
		args = append(args, *opts.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(base)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC")

	limit := opts.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " LIMIT $%d", len(args))
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}
