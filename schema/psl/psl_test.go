package psl

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/seedgraph/schema"
)

const companySchema = `
// Company directory used by the fixture tests.
datasource db {
  provider = "postgresql"
  url      = env("SEEDGRAPH_TEST_URL")
}

generator client {
  provider = "seedgraph"
}

enum Level {
  JUNIOR
  SENIOR @map("senior")
}

model Company {
  id        Int        @id
  name      String
  employees Employee[]

  @@map("companies")
}

/// An employee, possibly managed by another employee.
model Employee {
  id        Int        @id @default(autoincrement())
  name      String
  companyId Int        @map("company_id")
  company   Company    @relation(fields: [companyId], references: [id])
  managerId Int?       @map("manager_id")
  manager   Employee?  @relation("Management", fields: [managerId], references: [id])
  reports   Employee[] @relation("Management")
  level     Level      @default(JUNIOR)
  skills    Competency[]

  @@map("employees")
}

model Competency {
  id        Int        @id
  framework String     @db.VarChar(64)
  level     Int
  employees Employee[]

  @@unique([framework, level])
  @@naturalKey([framework, level])
}
`

func TestParse(t *testing.T) {
	f, err := ParseString("schema.prisma", companySchema)
	require.NoError(t, err)

	require.Len(t, f.Models(), 3)
	require.Len(t, f.Enums(), 1)
	assert.Len(t, f.Enums()[0].Values, 2)
	assert.Len(t, f.Configs("generator"), 1)

	employee := f.Models()[1]
	assert.Equal(t, "Employee", employee.Name)
	manager := fieldByName(employee, "manager")
	require.NotNil(t, manager)
	assert.True(t, manager.Optional)
	assert.False(t, manager.List)
	assert.Equal(t, []string{"managerId"}, manager.Attribute("relation").Arg("fields", -1).Names())
	assert.Equal(t, "Management", manager.Attribute("relation").Arg("name", 0).Text())

	framework := fieldByName(f.Models()[2], "framework")
	assert.NotNil(t, framework.Attribute("db.VarChar"))
}

func TestDatasource(t *testing.T) {
	t.Setenv("SEEDGRAPH_TEST_URL", "postgres://localhost/seed")
	f, err := ParseString("schema.prisma", companySchema)
	require.NoError(t, err)

	ds, err := DatasourceOf(f)
	require.NoError(t, err)
	assert.Equal(t, &Datasource{Name: "db", Provider: "postgresql", URL: "postgres://localhost/seed"}, ds)

	f, err = ParseString("schema.prisma", `datasource db {
  provider = "sqlite"
  url = "file:dev.db"
}`)
	require.NoError(t, err)
	ds, err = DatasourceOf(f)
	require.NoError(t, err)
	assert.Equal(t, "file:dev.db", ds.URL)

	f, err = ParseString("schema.prisma", `model A {
  id Int @id
}`)
	require.NoError(t, err)
	_, err = DatasourceOf(f)
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	f, err := ParseString("schema.prisma", companySchema)
	require.NoError(t, err)
	reg, err := Build(f)
	require.NoError(t, err)

	company, ok := reg.Lookup("Company")
	require.True(t, ok)
	assert.Equal(t, "companies", company.Table)
	employees, _ := company.Field("employees")
	assert.Equal(t, schema.Reverse, employees.Relation.Kind)

	employee, _ := reg.Lookup("Employee")
	assert.Equal(t, "id", employee.PKColumn)

	fk, _ := employee.Field("company")
	assert.Equal(t, schema.ToOne, fk.Relation.Kind)
	assert.Equal(t, "company_id", fk.Relation.Column)
	assert.Same(t, company, fk.Relation.Model())

	manager, _ := employee.Field("manager")
	assert.Equal(t, "manager_id", manager.Column)
	reports, _ := employee.Field("reports")
	assert.Equal(t, schema.Reverse, reports.Relation.Kind)

	skills, _ := employee.Field("skills")
	assert.Equal(t, schema.ToMany, skills.Relation.Kind)
	assert.Equal(t, "_CompetencyToEmployee", skills.Relation.JoinTable)
	assert.Equal(t, "B", skills.Relation.OwnerColumn)
	assert.Equal(t, "A", skills.Relation.TargetColumn)

	competency, _ := reg.Lookup("Competency")
	assert.Equal(t, "Competency", competency.Table)
	assert.Equal(t, []string{"framework", "level"}, competency.NaturalKey)
	back, _ := competency.Field("employees")
	assert.Equal(t, "A", back.Relation.OwnerColumn)

	level, _ := employee.Field("level")
	assert.False(t, level.IsRelation())
}

func TestBuildForeignKeyScalars(t *testing.T) {
	f, err := ParseString("schema.prisma", companySchema+`
model Membership {
  id        Int     @id
  companyId Int     @map("company_id")
  company   Company @relation(fields: [companyId], references: [id])
  title     String

  @@naturalKey([companyId, title])
}
`)
	require.NoError(t, err)
	reg, err := Build(f)
	require.NoError(t, err)

	employee, _ := reg.Lookup("Employee")
	_, ok := employee.Field("companyId")
	assert.False(t, ok)
	_, ok = employee.Field("managerId")
	assert.False(t, ok)

	var cols []string
	for _, c := range employee.Columns() {
		cols = append(cols, c.Column)
	}
	assert.Equal(t, []string{"name", "company_id", "manager_id", "level"}, cols)

	membership, _ := reg.Lookup("Membership")
	assert.Equal(t, []string{"company", "title"}, membership.NaturalKey)
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]string{
		"no id": `model A {
  name String
}`,
		"composite id": `model A {
  a Int
  b Int
  @@id([a, b])
}`,
		"missing opposite": `model A {
  id Int @id
  bs B[]
}
model B {
  id Int @id
}`,
		"unknown fk field": `model A {
  id Int @id
  b  B @relation(fields: [bId], references: [id])
}
model B {
  id Int @id
  as A[]
}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			f, err := ParseString("schema.prisma", src)
			require.NoError(t, err)
			_, err = Build(f)
			assert.Error(t, err)
		})
	}
}

func TestParseFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "prisma/schema.prisma", []byte(companySchema), 0o644))

	f, err := ParseFile(fs, "prisma/schema.prisma")
	require.NoError(t, err)
	assert.Len(t, f.Models(), 3)

	_, err = ParseFile(fs, "missing.prisma")
	assert.Error(t, err)

	_, err = ParseString("bad.prisma", "model {")
	assert.Error(t, err)
}
