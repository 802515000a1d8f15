package catalog_test

import (
	"testing"

	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/catalog/demo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinks(t *testing.T) {
	c := demo.Catalog()
	school := c.LookupTable("SCHOOL")
	require.NotNil(t, school)
	assert.Equal(t, []string{"code", "name", "campus", "department", "program"}, school.Names())

	department, err := school.LookupLink("department")
	require.NoError(t, err)
	assert.False(t, department.IsDirect)
	assert.False(t, department.IsSingular)
	assert.Equal(t, "department", department.Target.Name)

	back, err := department.Target.LookupLink("school")
	require.NoError(t, err)
	assert.True(t, back.IsDirect)
	assert.True(t, back.IsSingular)
	assert.Equal(t, "school(code)->department(school_code)", department.Key())
	assert.Equal(t, "department(school_code)->school(code)", back.Key())

	none, err := school.LookupLink("course")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestIdentity(t *testing.T) {
	c := demo.Catalog()
	course := c.LookupTable("course")
	var names []string
	for _, col := range course.Identity() {
		names = append(names, col.Name)
	}
	assert.Equal(t, []string{"department_code", "no"}, names)
	assert.True(t, course.IsUnique(course.Columns))
	assert.False(t, course.IsUnique(course.Columns[:1]))
}

func TestAmbiguousLinks(t *testing.T) {
	c, err := catalog.ParseYAML([]byte(`
schemas:
  - tables:
      - name: person
        columns:
          - {name: id, type: integer}
        primary-key: [id]
      - name: message
        columns:
          - {name: id, type: integer}
          - {name: sender_id, type: integer}
          - {name: recipient_id, type: integer}
        primary-key: [id]
        foreign-keys:
          - {columns: [sender_id], target: person}
          - {columns: [recipient_id], target: person}
`))
	require.NoError(t, err)
	message := c.LookupTable("message")
	sender, err := message.LookupLink("sender")
	require.NoError(t, err)
	require.NotNil(t, sender)
	assert.Equal(t, "sender_id", sender.OriginColumns[0].Name)
	person := c.LookupTable("person")
	assert.Equal(t, []string{"sender", "recipient", "message_via_sender", "message_via_recipient"}, linkNames(message, person))
}

func linkNames(tables ...*catalog.Table) []string {
	var names []string
	for _, t := range tables {
		for _, j := range t.Links() {
			names = append(names, j.Name)
		}
	}
	return names
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		yaml string
		err  string
	}{
		{
			yaml: `schemas: [{tables: [{name: t, columns: [{name: a, type: integer}], primary-key: [b]}]}]`,
			err:  `table t: unknown column "b"`,
		},
		{
			yaml: `schemas: [{tables: [{name: t, columns: [{name: a, type: integer}], foreign-keys: [{columns: [a], target: u}]}]}]`,
			err:  `table t: foreign key references unknown table "u"`,
		},
		{
			yaml: `schemas: [{tables: [{name: t, columns: [{name: a, type: integer}, {name: A, type: text}]}]}]`,
			err:  `table t: duplicate column "A"`,
		},
	}
	for _, c := range cases {
		_, err := catalog.ParseYAML([]byte(c.yaml))
		assert.EqualError(t, err, c.err)
	}
	_, err := catalog.ParseYAML([]byte("schemas: []\nextra: 1\n"))
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	f := demo.Catalog().File()
	b, err := catalog.EncodeSnapshot(f)
	require.NoError(t, err)
	c, err := catalog.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, f, c.File())

	_, err = catalog.DecodeSnapshot([]byte("schemas: []"))
	assert.ErrorIs(t, err, catalog.ErrNotSnapshot)
}

func TestYAMLRoundTrip(t *testing.T) {
	f := demo.Catalog().File()
	b, err := f.YAML()
	require.NoError(t, err)
	c, err := catalog.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, f, c.File())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, catalog.Normalize("École"), catalog.Normalize("e\u0301cole"))
	assert.Equal(t, catalog.Normalize("Straße"), catalog.Normalize("STRAßE"))
	assert.NotNil(t, demo.Catalog().LookupTable("Department"))
}
