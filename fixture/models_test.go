package fixture

import (
	"strings"
	"testing"

	"github.com/satishbabariya/seedgraph/schema"
	"github.com/satishbabariya/seedgraph/store"
	"github.com/satishbabariya/seedgraph/store/memstore"
)

type testModels struct {
	company, employee, history *schema.Model
	competency, posting        *schema.Model
	band, musician, membership *schema.Model
	roadie                     *schema.Model
}

func newTestModels(t *testing.T) *testModels {
	t.Helper()
	m := &testModels{
		company: schema.NewModel("Company").Scalar("name").
			ReverseOf("employees", "Employee"),
		employee: schema.NewModel("Employee").
			Scalar("name").
			ForeignKey("company", "Company", "company_id").
			ForeignKey("manager", "Employee", "manager_id").
			Scalar("cog_in_the_machine"),
		history: schema.NewModel("EmployeeHistory").
			ForeignKey("employee", "Employee", "employee_id").
			Scalar("position"),
		competency: schema.NewModel("Competency").
			Scalar("framework").
			Scalar("level").
			WithNaturalKey("framework", "level"),
		posting: schema.NewModel("JobPosting").
			Scalar("title").
			ForeignKey("main_competency", "Competency", "main_competency_id").
			ManyToMany("additional_competencies", "Competency", "job_posting_competencies", "job_posting_id", "competency_id"),
		band:     schema.NewModel("Band").Scalar("name"),
		musician: schema.NewModel("Musician").Scalar("name"),
		membership: schema.NewModel("Membership").
			ForeignKey("musician", "Musician", "musician_id").
			ForeignKey("band", "Band", "band_id").
			Scalar("instrument"),
		roadie: schema.NewModel("Roadie").
			Scalar("name").
			ManyToMany("hauls_for", "Band", "roadie_hauls_for", "roadie_id", "band_id"),
	}
	schema.MustRegistry(m.company, m.employee, m.history, m.competency, m.posting,
		m.band, m.musician, m.membership, m.roadie)
	return m
}

// cogHook flags employees of companies whose name contains " corp".
func cogHook() store.Hook {
	return store.Hook{
		Name:  "cog",
		Model: "Employee",
		BeforeSave: func(sc *store.SaveContext) error {
			cog := false
			if v, ok := sc.Get("company"); ok {
				if c, ok := v.(store.Object); ok {
					name, _ := c.Get("name")
					s, _ := name.(string)
					cog = strings.Contains(strings.ToLower(s), " corp")
				}
			}
			sc.Set("cog_in_the_machine", cog)
			return nil
		},
	}
}

func newStore(hooks ...store.Hook) *memstore.Store {
	return memstore.New(memstore.WithHooks(hooks...))
}

func refsOf(specs []*ObjectSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.String()
	}
	return out
}
