package main

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"querykit/internal/domain"
	"querykit/internal/domain/filter"
	"querykit/internal/domain/pagination"
	"querykit/internal/infrastructure/http/v1/dto"
	"querykit/internal/infrastructure/storage/postgres"
	"querykit/internal/shop"
)

func flattenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flatten [schema]",
		Short: "Print the query keys accepted by a filter schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := shop.Schemas()
			if len(args) == 0 {
				names := make([]string, 0, len(schemas))
				for name := range schemas {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
				return nil
			}

			s, ok := schemas[args[0]]
			if !ok {
				return fmt.Errorf("unknown filter schema %q", args[0])
			}
			return printSchema(cmd.OutOrStdout(), dto.NewSchemaResponse(s))
		},
	}
}

func printSchema(w io.Writer, s dto.SchemaResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTYPE\tWIRE\tREQUIRED\tDEFAULT")
	for _, f := range s.Fields {
		def := ""
		if f.Default != nil {
			def = fmt.Sprint(f.Default)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", f.Key, f.Type, f.Wire, f.Required, def)
	}
	return tw.Flush()
}

func sqlCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "sql <resource> [query]",
		Short:   "Print the PostgreSQL statements a list request compiles to",
		Example: `  querykit sql products 'search=pan&price__lt=3000&order_by=-price&size=10'`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 2 {
				raw = args[1]
			}
			plan, err := planFor(args[0], raw)
			if err != nil {
				return err
			}

			builder := postgres.NewQueryBuilder()
			list, err := builder.List(plan)
			if err != nil {
				return err
			}
			count, err := builder.Count(plan)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "-- %s\n", plan)
			for _, stmt := range []interface {
				ToSql() (string, []any, error)
			}{list, count} {
				sql, params, err := stmt.ToSql()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s;\n-- args: %v\n", sql, params)
			}
			return nil
		},
	}
}

func planFor(path, raw string) (domain.Plan, error) {
	var res *domain.Resource
	resources := shop.Resources()
	for i := range resources {
		if resources[i].Path == path {
			res = &resources[i]
		}
	}
	if res == nil {
		return domain.Plan{}, fmt.Errorf("unknown resource %q", path)
	}

	q, err := url.ParseQuery(raw)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("parse query: %w", err)
	}
	inst, err := filter.Parse(res.Filters, q)
	if err != nil {
		return domain.Plan{}, err
	}
	page, err := pageFrom(q)
	if err != nil {
		return domain.Plan{}, err
	}

	registry, err := shop.NewRegistry()
	if err != nil {
		return domain.Plan{}, err
	}
	entity, ok := registry.Get(res.Entity)
	if !ok {
		return domain.Plan{}, fmt.Errorf("entity %q is not registered", res.Entity)
	}

	orderBy := q.Get("order_by")
	if orderBy == "" {
		orderBy = res.DefaultOrder
	}
	return domain.Prepare(entity, domain.ListQuery{Filter: inst, OrderBy: orderBy, Page: page})
}

func pageFrom(q url.Values) (pagination.PageParams, error) {
	p := pagination.DefaultPage()
	var err error
	if v := q.Get("page"); v != "" {
		if p.Page, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("page: %w", err)
		}
	}
	if v := q.Get("size"); v != "" {
		if p.Size, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("size: %w", err)
		}
	}
	if v := q.Get("get_all"); v != "" {
		if p.GetAll, err = strconv.ParseBool(v); err != nil {
			return p, fmt.Errorf("get_all: %w", err)
		}
	}
	return p, nil
}
