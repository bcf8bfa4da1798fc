package projections

import (
	"context"
	"sort"
	"strings"

	"testinsure/internal/application/listutil"
	"testinsure/internal/domain/labtest"
)

// AdminTestSortColumns lists the columns the test catalog can be sorted by.
var AdminTestSortColumns = []string{"name", "cost"}

// AdminTestsQuery carries query parameters.
type AdminTestsQuery struct {
	List listutil.ListParams
}

// AdminTestsResult carries the query result.
type AdminTestsResult struct {
	Tests []labtest.LabTest
	Page  listutil.PageInfo
}

// AdminTestsDeps holds dependencies for AdminTests.
type AdminTestsDeps struct {
	Tests TestLister
}

// QueryAdminTests lists the catalog filtered by name, sorted and paged.
// POST: without a sort column the API's order is kept
func QueryAdminTests(ctx context.Context, query AdminTestsQuery, deps AdminTestsDeps) (AdminTestsResult, error) {
	all, err := deps.Tests.ListTests(ctx)
	if err != nil {
		return AdminTestsResult{Page: listutil.NewPageInfo(1, query.List.PerPage, 0)}, err
	}
	tests := labtest.FilterByName(all, query.List.Search)
	tests = append([]labtest.LabTest(nil), tests...)
	sortTests(tests, query.List.SortParams)

	info := listutil.NewPageInfo(query.List.Page, query.List.PerPage, len(tests))
	return AdminTestsResult{Tests: listutil.Window(tests, info), Page: info}, nil
}

func sortTests(tests []labtest.LabTest, s listutil.SortParams) {
	var less func(a, b labtest.LabTest) bool
	switch s.Sort {
	case "name":
		less = func(a, b labtest.LabTest) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "cost":
		less = func(a, b labtest.LabTest) bool { return a.Cost < b.Cost }
	default:
		return
	}
	sort.SliceStable(tests, func(i, j int) bool {
		if s.Dir == listutil.Desc {
			return less(tests[j], tests[i])
		}
		return less(tests[i], tests[j])
	})
}
