package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"prview/internal/app"
	"prview/internal/config"
	"prview/internal/review"
	"prview/internal/table"
	"prview/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a PRViewApp. The caller must defer app.Close().
func newApp(ctx context.Context, opts app.Options) (*app.PRViewApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewPRViewApp(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

func printTable[T any](t *table.Table[T]) error {
	return table.WritePlain(os.Stdout, t, stdoutIsTerminal(), terminalWidth())
}

// printResources prints items with a checkbox column reflecting IsActive.
func printResources(items []review.Resource, columns []table.Column[review.Resource]) error {
	items = review.SortByQualifiedName(items)
	return printTable(table.MustNew(table.Config[review.Resource]{
		Columns:              columns,
		Data:                 items,
		IdentifierKey:        tui.ResourceKey,
		CheckedItems:         review.Active(items),
		OnCheckedItemsChange: func([]review.Resource) {},
	}))
}

// readCredential reads a token without echo from a terminal, or a single
// line from piped input.
func readCredential(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading credential: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading credential: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func runProgram(m tea.Model) error {
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "prview",
	Short:        "Review open pull requests across DevOps organizations",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
			cfg.Remote.Endpoint = endpoint
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Endpoint: %s\n", cfg.Remote.Endpoint)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Endpoint:  %s\n", cfg.Remote.Endpoint)
		fmt.Printf("Timeout:   %s\n", cfg.Remote.Timeout.Duration)
		fmt.Printf("Database:  %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Log Dir:   %s (%s)\n", cfg.Log.Dir, cfg.Log.Level)
		fmt.Printf("Theme:     %s\n", cfg.UI.Theme)
		return nil
	},
}

// orgs command
var orgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "Manage DevOps organizations",
}

var orgsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		orgs := a.Service().Organizations(cmd.Context())
		return printTable(table.MustNew(table.Config[review.Resource]{
			Columns: tui.OrganizationColumns(),
			Data:    orgs,
		}))
	},
}

var orgsAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Import an organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		credential, err := readCredential("Personal Access Token: ")
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().AddOrganization(cmd.Context(), args[0], credential)
	},
}

var orgsRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove an organization and its repositories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().RemoveOrganization(cmd.Context(), args[0])
	},
}

var orgsUpdateCredentialCmd = &cobra.Command{
	Use:   "update-credential ID",
	Short: "Replace the Personal Access Token of an organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		credential, err := readCredential("New Personal Access Token: ")
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().UpdateCredential(cmd.Context(), args[0], credential)
	},
}

// repos command
var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage repositories",
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repositories; checked ones are in the filter",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		return printResources(a.Service().Repositories(cmd.Context()), tui.RepositoryColumns())
	},
}

var reposRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().RemoveRepository(cmd.Context(), args[0])
	},
}

var reposToggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Enable or disable a repository on the host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().ToggleRepositoryActive(cmd.Context(), args[0])
	},
}

// projects command
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Inspect projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects; checked ones are in the filter",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		return printResources(a.Service().Projects(cmd.Context()), tui.ProjectColumns())
	},
}

// filter command
var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Edit which projects and repositories are shown",
}

func runFilter(cmd *cobra.Command, title string, scope review.Scope, columns []table.Column[review.Resource],
	load func(*review.ReviewService) tui.LoadFunc[review.Resource]) error {
	notifier := tui.NewChannelNotifier(16)
	a, err := newApp(cmd.Context(), app.Options{TUI: true, Notifier: notifier})
	if err != nil {
		return err
	}
	defer a.Close()

	svc := a.Service()
	return runProgram(tui.NewFilterModel(cmd.Context(), tui.FilterOptions{
		Title:         title,
		Scope:         scope,
		Columns:       columns,
		Load:          load(svc),
		Service:       svc,
		Notifications: notifier.C(),
		Theme:         a.Theme(),
		Keys:          tui.DefaultKeyMap(),
	}))
}

var filterProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Select projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFilter(cmd, "Projects", review.ScopeProjects, tui.ProjectColumns(),
			func(s *review.ReviewService) tui.LoadFunc[review.Resource] { return s.Projects })
	},
}

var filterRepositoriesCmd = &cobra.Command{
	Use:   "repositories",
	Short: "Select repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFilter(cmd, "Repositories", review.ScopeRepositories, tui.RepositoryColumns(),
			func(s *review.ReviewService) tui.LoadFunc[review.Resource] { return s.Repositories })
	},
}

var filterShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved selections",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{Offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		selections, err := a.Store().ListSelections()
		if err != nil {
			return err
		}
		if len(selections) == 0 {
			fmt.Println("No selections saved; everything is shown.")
			return nil
		}
		for _, s := range selections {
			fmt.Printf("%-22s  %s  %d selected\n", s.Scope, s.UpdatedAt.Local().Format("2006-01-02 15:04:05"), len(s.IDs))
		}
		return nil
	},
}

var filterResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the saved selections so everything is shown",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{Offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		for _, scope := range []review.Scope{review.ScopeProjects, review.ScopeRepositories} {
			if err := a.Store().ClearSelection(scope); err != nil {
				return err
			}
		}
		fmt.Println("Selections cleared.")
		return nil
	},
}

// prs command
var prsCmd = &cobra.Command{
	Use:   "prs",
	Short: "Show open pull requests of the selected repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		if plain || !stdoutIsTerminal() {
			a, err := newApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			return printTable(table.MustNew(table.Config[review.PullRequest]{
				Columns: tui.PullRequestColumns(),
				Data:    a.Service().PullRequests(cmd.Context()),
			}))
		}

		notifier := tui.NewChannelNotifier(16)
		a, err := newApp(cmd.Context(), app.Options{TUI: true, Notifier: notifier})
		if err != nil {
			return err
		}
		defer a.Close()

		return runProgram(tui.NewPullsModel(cmd.Context(), tui.PullsOptions{
			Service:       a.Service(),
			Open:          a.Open,
			Notifier:      notifier,
			Notifications: notifier.C(),
			Theme:         a.Theme(),
			Keys:          tui.DefaultKeyMap(),
		}))
	},
}

var prsOpenCmd = &cobra.Command{
	Use:   "open ID",
	Short: "Open a pull request in the browser",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pull request id %q", args[0])
		}

		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		for _, pr := range a.Service().PullRequests(cmd.Context()) {
			if pr.ID != id {
				continue
			}
			url := pr.WebURL()
			if url == "" {
				return fmt.Errorf("pull request %d has no web address", id)
			}
			return a.Open(url)
		}
		return fmt.Errorf("pull request %d is not among the open pull requests", id)
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the local selection store",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{Offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.Store().MigrationStatus()
		if err != nil {
			return err
		}
		fmt.Printf("Path:    %s\n", a.Store().Path())
		fmt.Printf("Version: %d of %d\n", status.Current, status.Latest)
		if status.Dirty {
			fmt.Println("Dirty:   yes")
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("endpoint", "", "Command host websocket URL")

	// orgs subcommands
	orgsCmd.AddCommand(orgsListCmd)
	orgsCmd.AddCommand(orgsAddCmd)
	orgsCmd.AddCommand(orgsRemoveCmd)
	orgsCmd.AddCommand(orgsUpdateCredentialCmd)

	// repos subcommands
	reposCmd.AddCommand(reposListCmd)
	reposCmd.AddCommand(reposRemoveCmd)
	reposCmd.AddCommand(reposToggleCmd)

	projectsCmd.AddCommand(projectsListCmd)

	// filter subcommands
	filterCmd.AddCommand(filterProjectsCmd)
	filterCmd.AddCommand(filterRepositoriesCmd)
	filterCmd.AddCommand(filterShowCmd)
	filterCmd.AddCommand(filterResetCmd)

	// prs subcommands
	prsCmd.AddCommand(prsOpenCmd)
	prsCmd.Flags().Bool("plain", false, "Print a plain table instead of the interactive view")

	dbCmd.AddCommand(dbStatusCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(orgsCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(prsCmd)
	rootCmd.AddCommand(dbCmd)
}
