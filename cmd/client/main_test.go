package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antonio-alexander/go-employee-dashboard/internal/client"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/logic"
	"github.com/antonio-alexander/go-employee-dashboard/internal/service"
	"github.com/antonio-alexander/go-employee-dashboard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) client.Client {
	ctx := context.TODO()

	l := logic.NewLogic(store.NewMemory())
	require.Nil(t, l.Open(ctx))
	server := httptest.NewServer(service.NewService(l))
	t.Cleanup(server.Close)
	serverUrl, err := url.Parse(server.URL)
	require.Nil(t, err)
	c := client.NewClient()
	err = c.Configure(map[string]string{
		"CLIENT_ADDRESS": serverUrl.Hostname(),
		"CLIENT_PORT":    serverUrl.Port(),
	})
	require.Nil(t, err)
	require.Nil(t, c.Open(ctx))
	return c
}

func execute(t *testing.T, c client.Client, stdin string, args ...string) (string, error) {
	var stdout bytes.Buffer

	rootCmd := newRootCommand(context.TODO(), c)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestSearchFlags(t *testing.T) {
	submitted := true
	cases := map[string]struct {
		iFlags   searchFlags
		oRequest data.EmployeeSearch
	}{
		"defaults": {
			iFlags: searchFlags{status: "all", order: data.OrderAsc},
		},
		"filters": {
			iFlags: searchFlags{status: data.StatusSubmitted, role: "Designer",
				search: "rahul", sortBy: "name", order: data.OrderDesc},
			oRequest: data.EmployeeSearch{AssessmentSubmitted: &submitted, Role: "Designer",
				Search: "rahul", SortBy: "name", Order: data.OrderDesc},
		},
	}
	for cDesc, c := range cases {
		assert.Equal(t, c.oRequest, c.iFlags.request(), cDesc)
	}
}

func TestCommands(t *testing.T) {
	var employee data.Employee
	var employees []*data.Employee

	c := newClient(t)

	// seed the embedded employees twice, the second is a no-op
	stdout, err := execute(t, c, "", "seed")
	require.Nil(t, err)
	assert.Contains(t, stdout, "created 7 employees")
	stdout, err = execute(t, c, "", "seed")
	require.Nil(t, err)
	assert.Contains(t, stdout, "created 0 employees")

	stdout, err = execute(t, c, "", "list", "--role", "Software Engineer", "--sort-by", "name")
	require.Nil(t, err)
	require.Nil(t, json.Unmarshal([]byte(stdout), &employees))
	require.Len(t, employees, 2)
	assert.Equal(t, "Sujal Mendhe", employees[0].Name)

	stdout, err = execute(t, c, `{"name":"Maya Rao","email":"maya.rao@company.com","role":"Designer"}`,
		"create", "--file", "-")
	require.Nil(t, err)
	require.Nil(t, json.Unmarshal([]byte(stdout), &employee))
	id := employee.ID

	file := filepath.Join(t.TempDir(), "employee.json")
	require.Nil(t, os.WriteFile(file, []byte(`{"role":"Design Lead"}`), 0600))
	stdout, err = execute(t, c, "", "update", id, "--file", file)
	require.Nil(t, err)
	require.Nil(t, json.Unmarshal([]byte(stdout), &employee))
	assert.Equal(t, "Design Lead", employee.Role)

	stdout, err = execute(t, c, "", "get", id)
	require.Nil(t, err)
	assert.Contains(t, stdout, "Design Lead")

	stdout, err = execute(t, c, "", "stats", "--status", data.StatusNotSubmitted)
	require.Nil(t, err)
	assert.Contains(t, stdout, `"total": 3`)

	// export and import round trip against the same service is a no-op
	stdout, err = execute(t, c, "", "export", "--role", "Designer")
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(stdout, "ID,Name,Email"))
	csv := stdout
	stdout, err = execute(t, c, csv, "import")
	require.Nil(t, err)
	assert.Contains(t, stdout, "created 0 employees")

	stdout, err = execute(t, c, "", "questions")
	require.Nil(t, err)
	assert.Contains(t, stdout, "q20")

	_, err = execute(t, c, "", "delete", id)
	require.Nil(t, err)
	_, err = execute(t, c, "", "get", id)
	assert.ErrorIs(t, err, data.ErrNotFound)

	// usage errors
	_, err = execute(t, c, "", "get")
	assert.NotNil(t, err)
	_, err = execute(t, c, "", "create")
	assert.NotNil(t, err)
	_, err = execute(t, c, "{", "create", "--file", "-")
	assert.NotNil(t, err)
}
