package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/client"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/export"
	"github.com/antonio-alexander/go-employee-dashboard/internal/projection"
	"github.com/antonio-alexander/go-employee-dashboard/internal/seed"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	Version   string
	GitCommit string
	GitBranch string
)

func init() {
	if Version = data.Version; Version == "" {
		Version = "<no_version_provided>"
	}
	if GitCommit = data.GitCommit; GitCommit == "" {
		GitCommit = "<no_git_commit>"
	}
	if GitBranch = data.GitBranch; GitBranch == "" {
		GitBranch = "<no_git_branch>"
	}
}

func main() {
	args := os.Args[1:]
	envs, err := internal.Envs(".env")
	if err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(args, envs, osSignal); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// searchFlags are the list filters shared by list, stats and export
type searchFlags struct {
	status                string
	role                  string
	tag                   string
	interestArea          string
	longTermGoals         string
	workCulturePreference string
	learningAttitude      string
	search                string
	sortBy                string
	order                 string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", projection.FilterAll, "submitted, not_submitted or all")
	cmd.Flags().StringVar(&f.role, "role", "", "exact role")
	cmd.Flags().StringVar(&f.tag, "tag", "", "exact tag")
	cmd.Flags().StringVar(&f.interestArea, "interest-area", "", "exact interest area")
	cmd.Flags().StringVar(&f.longTermGoals, "long-term-goals", "", "exact long term goals")
	cmd.Flags().StringVar(&f.workCulturePreference, "work-culture-preference", "", "exact work culture preference")
	cmd.Flags().StringVar(&f.learningAttitude, "learning-attitude", "", "exact learning attitude")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "case insensitive search over name, email and tags")
	cmd.Flags().StringVar(&f.sortBy, "sort-by", "", "field to sort by")
	cmd.Flags().StringVar(&f.order, "order", data.OrderAsc, "asc or desc")
}

func (f *searchFlags) request() data.EmployeeSearch {
	state := projection.State{
		Filters: make(map[string]string),
		Search:  f.search,
		Sort:    projection.Sort{Field: f.sortBy, Order: f.order},
	}
	for key, value := range map[string]string{
		projection.FilterStatus:                f.status,
		projection.FilterRole:                  f.role,
		projection.FilterTag:                   f.tag,
		projection.FilterInterestArea:          f.interestArea,
		projection.FilterLongTermGoals:         f.longTermGoals,
		projection.FilterWorkCulturePreference: f.workCulturePreference,
		projection.FilterLearningAttitude:      f.learningAttitude,
	} {
		if value != "" && value != projection.FilterAll {
			state.Filters[key] = value
		}
	}
	if f.sortBy == "" {
		state.Sort = projection.Sort{}
	}
	return state.Request()
}

func printJson(writer io.Writer, item any) error {
	bytes, err := json.MarshalIndent(item, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(writer, string(bytes))
	return err
}

// readPartial reads a json employee from a file or from stdin when the file
// is "-".
func readPartial(cmd *cobra.Command, file string) (data.EmployeePartial, error) {
	var employeePartial data.EmployeePartial
	var reader io.Reader = cmd.InOrStdin()

	if file == "" {
		return employeePartial, errors.New("a json file is required, use - for stdin")
	}
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return employeePartial, err
		}
		defer f.Close()
		reader = f
	}
	if err := json.NewDecoder(reader).Decode(&employeePartial); err != nil {
		return employeePartial, errors.Wrap(err, "unable to decode employee")
	}
	return employeePartial, nil
}

func newRootCommand(ctx context.Context, c client.Client) *cobra.Command {
	var listFlags, statsFlags, exportFlags searchFlags
	var createFile, updateFile, exportOutput, seedFile, importFile string

	rootCmd := &cobra.Command{
		Use:           "client",
		Short:         "Manage employees of the dashboard service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List employees matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			employees, err := c.EmployeesSearch(ctx, listFlags.request())
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), employees)
		},
	}
	listFlags.register(listCmd)
	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Read an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employee, err := c.EmployeeRead(ctx, args[0])
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), employee)
		},
	}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an employee from json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			employeePartial, err := readPartial(cmd, createFile)
			if err != nil {
				return err
			}
			employee, err := c.EmployeeCreate(ctx, employeePartial)
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), employee)
		},
	}
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "json employee, - for stdin")
	updateCmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update the provided fields of an employee from json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employeePartial, err := readPartial(cmd, updateFile)
			if err != nil {
				return err
			}
			employee, err := c.EmployeeUpdate(ctx, args[0], employeePartial)
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), employee)
		},
	}
	updateCmd.Flags().StringVarP(&updateFile, "file", "f", "", "json employee fields, - for stdin")
	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.EmployeeDelete(ctx, args[0]); err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), data.Message{Message: "employee deleted"})
		},
	}
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the employees matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.EmployeesStats(ctx, statsFlags.request())
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), stats)
		},
	}
	statsFlags.register(statsCmd)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the employees matching the filters as csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var writer io.Writer = cmd.OutOrStdout()

			if exportOutput != "" && exportOutput != "-" {
				f, err := os.Create(exportOutput)
				if err != nil {
					return err
				}
				defer f.Close()
				writer = f
			}
			return c.EmployeesExport(ctx, exportFlags.request(), writer)
		},
	}
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write, defaults to stdout")
	questionsCmd := &cobra.Command{
		Use:   "questions",
		Short: "List the assessment questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			questions, err := c.Questions(ctx)
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), questions)
		},
	}
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the employees of a yaml document that don't exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			employeePartials := seed.Default()
			if seedFile != "" {
				e, err := seed.ReadFile(seedFile)
				if err != nil {
					return err
				}
				employeePartials = e
			}
			created, err := seed.Seed(ctx, c, nil, employeePartials...)
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), data.Message{
				Message: fmt.Sprintf("created %d employees", created),
			})
		},
	}
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "yaml document, defaults to the embedded employees")
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Create the employees of an exported csv that don't exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reader io.Reader = cmd.InOrStdin()

			if importFile != "" && importFile != "-" {
				f, err := os.Open(importFile)
				if err != nil {
					return err
				}
				defer f.Close()
				reader = f
			}
			employees, err := export.Read(reader)
			if err != nil {
				return err
			}
			employeePartials := make([]data.EmployeePartial, 0, len(employees))
			for _, employee := range employees {
				employeePartials = append(employeePartials, export.ToPartial(employee))
			}
			created, err := seed.Seed(ctx, c, nil, employeePartials...)
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), data.Message{
				Message: fmt.Sprintf("created %d employees", created),
			})
		},
	}
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "csv file, defaults to stdin")
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "client: go-employee-dashboard v%s (%s) built from: %s\n",
				Version, GitCommit, GitBranch)
			return err
		},
	}
	rootCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd,
		statsCmd, exportCmd, questionsCmd, seedCmd, importCmd, versionCmd)
	return rootCmd
}

func Main(args []string, envs map[string]string, osSignal chan os.Signal) error {
	var wg sync.WaitGroup

	//create context
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer func() {
		cancel()
		wg.Wait()
	}()

	// create logger
	logger := utilities.NewLogger(os.Stderr)
	if err := logger.Configure(envs); err != nil {
		return err
	}

	//create client
	client := client.NewClient(logger)
	if err := client.Configure(envs); err != nil {
		return err
	}
	if err := client.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Error(context.Background(), "error while closing client: %s", err)
		}
	}()

	// execute command
	rootCmd := newRootCommand(internal.CtxWithCorrelationId(ctx, internal.GenerateId()), client)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}
