package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mundobebe/backoffice/filter"
	"github.com/mundobebe/backoffice/table"
)

// listFlags are shared by the list commands.
type listFlags struct {
	page    int
	perPage int
	sort    string
	filters string
	join    string
	fields  map[string]string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.perPage, "per-page", table.DefaultPerPage, "rows per page")
	cmd.Flags().StringVar(&f.sort, "sort", "", `sort terms, e.g. "name.asc,createdAt.desc"`)
	cmd.Flags().StringVar(&f.filters, "filters", "", "advanced filters as a JSON array")
	cmd.Flags().StringVar(&f.join, "join", string(filter.And), "join operator for advanced filters (and|or)")
	cmd.Flags().StringToStringVar(&f.fields, "field", nil, "simple filter field=value")
}

func (f *listFlags) params() (table.Params, error) {
	p := table.Params{
		Page:         f.page,
		PerPage:      f.perPage,
		Sort:         f.sort,
		Fields:       f.fields,
		JoinOperator: filter.JoinOperator(f.join),
	}
	if f.filters != "" {
		if err := json.Unmarshal([]byte(f.filters), &p.Filters); err != nil {
			return p, fmt.Errorf("parse --filters: %w", err)
		}
		p.Advanced = true
	}
	return p, nil
}
