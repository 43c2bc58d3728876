package guard

import (
	"sort"
	"strings"

	"github.com/spec-kit/academia-portal/internal/domain"
)

// Route binds a path prefix to the requirement guarding it.
type Route struct {
	Prefix      string
	Title       string
	Requirement Requirement
}

// Table matches request paths to routes by longest prefix.
type Table struct {
	routes []Route
}

func NewTable(routes ...Route) *Table {
	sorted := append([]Route(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Table{routes: sorted}
}

// DefaultTable guards the institutional sections of the application.
func DefaultTable() *Table {
	return NewTable(
		Route{Prefix: "/dashboard", Title: "Painel", Requirement: Authenticated()},
		Route{Prefix: "/students", Title: "Alunos", Requirement: AnyOf(domain.RoleAdmin, domain.RoleTeacher, domain.RoleEmployee)},
		Route{Prefix: "/teachers", Title: "Professores", Requirement: AnyOf(domain.RoleAdmin, domain.RoleEmployee, domain.RoleHRAnalyst)},
		Route{Prefix: "/finance", Title: "Financeiro", Requirement: AnyOf(domain.RoleAdmin, domain.RoleEmployee)},
		Route{Prefix: "/hr", Title: "Recursos Humanos", Requirement: AnyOf(domain.RoleAdmin, domain.RoleHRAnalyst)},
		Route{Prefix: "/library", Title: "Biblioteca", Requirement: AnyOf(domain.RoleAdmin, domain.RoleLibrarian, domain.RoleTeacher, domain.RoleStudent)},
		Route{Prefix: "/it-assets", Title: "Patrimônio de TI", Requirement: AnyOf(domain.RoleAdmin, domain.RoleTechnician)},
		Route{Prefix: "/tickets", Title: "Chamados", Requirement: Authenticated()},
		Route{Prefix: "/calendar", Title: "Calendário", Requirement: Authenticated()},
	)
}

// Match returns the most specific route covering path. A prefix covers the
// path itself and anything below it, so /hr does not cover /hrm.
func (t *Table) Match(path string) (Route, bool) {
	for _, r := range t.routes {
		if path == r.Prefix || strings.HasPrefix(path, strings.TrimSuffix(r.Prefix, "/")+"/") {
			return r, true
		}
	}
	return Route{}, false
}

// Routes lists the table in match order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}
