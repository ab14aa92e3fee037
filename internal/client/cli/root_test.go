package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/client/sweeper"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factoryFor(app *App, closed *int) AppFactory {
	return func(context.Context) (*App, error) {
		app.closers = append(app.closers, func() error { *closed++; return nil })
		return app, nil
	}
}

func execute(t *testing.T, root *cobra.Command, stdin string, args ...string) error {
	t.Helper()
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func TestRootCommand_Tree(t *testing.T) {
	root := NewRootCommand(nil)
	assert.Equal(t, "fieldreport", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"form", "pending", "sweep", "draft", "repair"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	draft := models.NewFormState()
	draft.Category = "pothole"

	cases := []struct {
		args []string
		svc  *fakeService
		want string
	}{
		{args: []string{"pending"}, svc: &fakeService{pending: []string{"r-1"}}, want: "1 pending:\n  r-1"},
		{args: []string{"sweep", "-e", "http://other/submit"}, svc: &fakeService{report: sweeper.Report{Attempted: 1, Delivered: 1}}, want: "delivered 1"},
		{args: []string{"draft"}, svc: &fakeService{resume: draft}, want: "Category: pothole"},
		{args: []string{"draft"}, svc: &fakeService{}, want: "No saved draft"},
		{args: []string{"repair", "-c", "none.json"}, svc: &fakeService{}, want: "Queue is consistent"},
	}

	for _, tc := range cases {
		t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
			out := captureOutput(t)
			var closed int
			root := NewRootCommand(factoryFor(newTestApp(tc.svc), &closed))

			require.NoError(t, execute(t, root, "", tc.args...))
			assert.Contains(t, out(), tc.want)
			assert.Equal(t, 1, closed, "app closed after the command")
		})
	}
}

func TestRootCommand_DefaultsToForm(t *testing.T) {
	out := captureOutput(t)
	svc := &fakeService{}
	var closed int
	root := NewRootCommand(factoryFor(newTestApp(svc), &closed))

	require.NoError(t, execute(t, root, "category streetlight\nexit\n"))
	assert.Contains(t, out(), "Bye!")
	assert.Equal(t, "streetlight", svc.last.Category)

	svc2 := &fakeService{}
	root = NewRootCommand(factoryFor(newTestApp(svc2), &closed))
	require.NoError(t, execute(t, root, "tag urgent\n", "form", "-l", "debug"))
	assert.Equal(t, []string{"urgent"}, svc2.last.TagList())
}

func TestRootCommand_FactoryError(t *testing.T) {
	root := NewRootCommand(func(context.Context) (*App, error) { return nil, errBoom })
	require.ErrorIs(t, execute(t, root, "", "pending"), errBoom)
}

func TestRoot_InteractiveTerminal(t *testing.T) {
	out := captureOutput(t)
	orig := isTerminal
	isTerminal = func(int) bool { return true }
	t.Cleanup(func() { isTerminal = orig })

	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.WriteString("exit\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	defer r.Close()

	app := newTestApp(&fakeService{})
	app.Root(context.Background(), r)

	assert.Contains(t, out(), "Welcome to fieldreport")
	assert.Contains(t, out(), "fr > ")
}
