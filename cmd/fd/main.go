package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fundline/internal/board"
	"fundline/internal/config"
	"fundline/internal/db"
	"fundline/internal/domain"
	"fundline/internal/engine"
	"fundline/internal/migrate"
	"fundline/internal/reminder"
	"fundline/internal/repo"
	"fundline/internal/server"
	"fundline/internal/unitecon"
)

var rootCmd = &cobra.Command{
	Use:   "fd",
	Short: "Fundline CLI",
	Long: `Fundline is a back office for a business funding brokerage: a kanban task
board with drag-aware ordering, a lender directory, a customer pipeline,
marketing vendor tracking, documents, an inbox, and a unit economics
calculator. State lives in a per-workspace SQLite database under .fundline/.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FUNDLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().Bool("force", false, "force operation")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(phaseCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(lenderCmd())
	rootCmd.AddCommand(customerCmd())
	rootCmd.AddCommand(vendorCmd())
	rootCmd.AddCommand(inboxCmd())
	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(calcCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(apikeyCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.WriteFile(cfgPath, []byte(config.DefaultTemplate()), 0o644); err != nil {
					return err
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, cfg *config.Config) error {
				if err := e.SeedDictionaries(ctx, cfg.Seed.Phases, cfg.Seed.Categories); err != nil {
					return err
				}
				fmt.Printf("initialized workspace at %s (db %s)\n", workspace, db.Path(workspace))
				return nil
			})
		},
	}
}

func boardCmd() *cobra.Command {
	var search, phase, category, priority string
	var showQuarantine bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the task board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{})
				if err != nil {
					return err
				}
				filter := board.Filter{Search: search, Phase: phase, Category: category, Priority: priority}
				grouped := board.GroupByStatus(filter.Apply(tasks))
				quarantined, err := e.Repo.ListQuarantined(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"columns":     grouped,
						"quarantined": quarantined,
					})
				}
				for _, status := range domain.Statuses() {
					col := grouped[status]
					fmt.Printf("%s (%d)\n", status.Label(), len(col))
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"#", "ID", "Title", "Priority", "Due"})
					for _, t := range col {
						due := ""
						if t.DueDate != nil {
							due = *t.DueDate
						}
						tw.AppendRow(table.Row{t.Position, t.ID, t.Title, t.Priority, due})
					}
					tw.Render()
					fmt.Println()
				}
				if len(quarantined) > 0 {
					fmt.Printf("%d row(s) quarantined with unknown status or priority; run with --quarantine to list them\n", len(quarantined))
				}
				if showQuarantine && len(quarantined) > 0 {
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority"})
					for _, q := range quarantined {
						tw.AppendRow(table.Row{q.ID, q.Title, q.Status, q.Priority})
					}
					tw.Render()
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "search title and description")
	cmd.Flags().StringVar(&phase, "phase", "", "filter by phase")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority")
	cmd.Flags().BoolVar(&showQuarantine, "quarantine", false, "list quarantined rows")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskMoveCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskCommentCmd())
	task.AddCommand(taskActivityCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var in engine.CreateTaskInput
	var due, assignee string
	var estimated float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				if cmd.Flags().Changed("due") {
					in.DueDate = &due
				}
				if cmd.Flags().Changed("assignee") {
					in.AssignedTo = &assignee
				}
				if cmd.Flags().Changed("estimated-hours") {
					in.EstimatedHours = &estimated
				}
				t, err := e.CreateTask(ctx, viper.GetString("actor-id"), in)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "task title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.Status, "status", "", "column (backlog|todo|in_progress|review|done)")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&in.Category, "category", "", "category")
	cmd.Flags().StringVar(&in.Phase, "phase", "", "phase")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee actor id")
	cmd.Flags().Float64Var(&estimated, "estimated-hours", 0, "estimated hours")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tasks, err := r.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Pos", "Priority", "Phase", "Category"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Position, t.Priority, t.Phase, t.Category})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "filter by priority")
	cmd.Flags().StringVar(&f.Phase, "phase", "", "filter by phase")
	cmd.Flags().StringVar(&f.Category, "category", "", "filter by category")
	cmd.Flags().StringVar(&f.AssignedTo, "assignee", "", "filter by assignee")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "limit results")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				t, err := r.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, description, status, priority, category, phase, due, assignee string
	var estimated, actual float64
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				var in engine.UpdateTaskInput
				set := func(name string, dst **string, v *string) {
					if cmd.Flags().Changed(name) {
						*dst = v
					}
				}
				set("title", &in.Title, &title)
				set("description", &in.Description, &description)
				set("status", &in.Status, &status)
				set("priority", &in.Priority, &priority)
				set("category", &in.Category, &category)
				set("phase", &in.Phase, &phase)
				set("due", &in.DueDate, &due)
				set("assignee", &in.AssignedTo, &assignee)
				if cmd.Flags().Changed("estimated-hours") {
					in.EstimatedHours = &estimated
				}
				if cmd.Flags().Changed("actual-hours") {
					in.ActualHours = &actual
				}
				t, err := e.UpdateTask(ctx, viper.GetString("actor-id"), args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "column")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringVar(&phase, "phase", "", "phase")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee actor id")
	cmd.Flags().Float64Var(&estimated, "estimated-hours", 0, "estimated hours")
	cmd.Flags().Float64Var(&actual, "actual-hours", 0, "actual hours")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	var over string
	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Move task on the board",
		Long:  "Drops the task onto --over, which is either a column (backlog, todo, in_progress, review, done) or another task id. Dropping onto a task inserts immediately before it; dropping onto a column appends.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				tasks, err := e.MoveTask(ctx, viper.GetString("actor-id"), args[0], over)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				t, err := e.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s -> %s position %d\n", t.ID, t.Status, t.Position)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&over, "over", "", "drop target: column or task id")
	_ = cmd.MarkFlagRequired("over")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				return e.DeleteTask(ctx, args[0])
			})
		},
	}
}

func taskCommentCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "comment <task-id>",
		Short: "Add comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				c, err := e.AddComment(ctx, viper.GetString("actor-id"), args[0], message)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "comment text")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func taskActivityCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity <task-id>",
		Short: "Show task activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				entries, err := r.ListActivity(ctx, args[0], limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Actor", "Action", "Field", "Old", "New"})
				for _, e := range entries {
					tw.AppendRow(table.Row{e.CreatedAt, e.ActorID, e.Action, e.FieldName, e.OldValue, e.NewValue})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries")
	return cmd
}

func phaseCmd() *cobra.Command {
	phase := &cobra.Command{Use: "phase", Short: "Manage phases"}
	phase.AddCommand(dictAddCmd("phase", func(ctx context.Context, e *engine.Engine, name string) (any, error) {
		return e.CreatePhase(ctx, name)
	}))
	phase.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List phases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListPhases(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	phase.AddCommand(&cobra.Command{
		Use:   "rm <phase-id>",
		Short: "Delete phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeletePhase(ctx, args[0])
			})
		},
	})
	return phase
}

func categoryCmd() *cobra.Command {
	category := &cobra.Command{Use: "category", Short: "Manage categories"}
	category.AddCommand(dictAddCmd("category", func(ctx context.Context, e *engine.Engine, name string) (any, error) {
		return e.CreateCategory(ctx, name)
	}))
	category.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListCategories(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	category.AddCommand(&cobra.Command{
		Use:   "rm <category-id>",
		Short: "Delete category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteCategory(ctx, args[0])
			})
		},
	})
	return category
}

func dictAddCmd(kind string, create func(context.Context, *engine.Engine, string) (any, error)) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add " + kind,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				item, err := create(ctx, e, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", kind+" name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func lenderCmd() *cobra.Command {
	lender := &cobra.Command{Use: "lender", Short: "Manage the lender directory"}
	lender.AddCommand(lenderAddCmd())
	lender.AddCommand(lenderListCmd())
	lender.AddCommand(lenderShowCmd())
	lender.AddCommand(lenderUpdateCmd())
	lender.AddCommand(lenderRmCmd())
	return lender
}

func lenderFlags(cmd *cobra.Command, in *engine.LenderInput, industries *[]string) {
	cmd.Flags().StringVar(&in.Name, "name", "", "lender name")
	cmd.Flags().Float64Var(&in.MinAmount, "min-amount", 0, "minimum deal size")
	cmd.Flags().Float64Var(&in.MaxAmount, "max-amount", 0, "maximum deal size")
	cmd.Flags().IntVar(&in.MinCreditScore, "min-credit-score", 0, "minimum credit score")
	cmd.Flags().StringSliceVar(industries, "industry", nil, "served industry (repeatable)")
	cmd.Flags().StringVar(&in.PaperGrade, "paper-grade", "", "paper grade (A|B|C|D)")
	cmd.Flags().StringVar(&in.ContactName, "contact-name", "", "contact name")
	cmd.Flags().StringVar(&in.ContactEmail, "contact-email", "", "contact email")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
}

func lenderAddCmd() *cobra.Command {
	var in engine.LenderInput
	var industries []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add lender",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				in.Industries = industries
				l, err := e.CreateLender(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	lenderFlags(cmd, &in, &industries)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func lenderListCmd() *cobra.Command {
	var amount float64
	var paperGrade string
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List lenders, optionally matched to a deal amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				var lenders []domain.Lender
				var err error
				if amount > 0 {
					lenders, err = e.MatchLenders(ctx, amount, paperGrade)
				} else {
					lenders, err = e.Repo.ListLenders(ctx, repo.LenderFilters{ActiveOnly: activeOnly, PaperGrade: paperGrade})
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(lenders)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Range", "Grade", "Active"})
				for _, l := range lenders {
					tw.AppendRow(table.Row{l.ID, l.Name,
						fmt.Sprintf("%.0f-%.0f", l.MinAmount, l.MaxAmount), l.PaperGrade, l.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 0, "match lenders covering this amount")
	cmd.Flags().StringVar(&paperGrade, "paper-grade", "", "filter by paper grade")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "active lenders only")
	return cmd
}

func lenderShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <lender-id>",
		Short: "Show lender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				l, err := r.GetLender(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
}

func lenderUpdateCmd() *cobra.Command {
	var in engine.LenderInput
	var industries []string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <lender-id>",
		Short: "Update lender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				in.Industries = industries
				if cmd.Flags().Changed("active") {
					in.Active = &active
				}
				l, err := e.UpdateLender(ctx, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	lenderFlags(cmd, &in, &industries)
	cmd.Flags().BoolVar(&active, "active", true, "lender accepts new deals")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func lenderRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <lender-id>",
		Short: "Delete lender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteLender(ctx, args[0])
			})
		},
	}
}

func customerCmd() *cobra.Command {
	customer := &cobra.Command{Use: "customer", Short: "Manage the customer pipeline"}
	customer.AddCommand(customerAddCmd())
	customer.AddCommand(customerListCmd())
	customer.AddCommand(customerShowCmd())
	customer.AddCommand(customerUpdateCmd())
	customer.AddCommand(customerStageCmd())
	customer.AddCommand(customerRmCmd())
	customer.AddCommand(customerSummaryCmd())
	return customer
}

func customerAddCmd() *cobra.Command {
	var in engine.CustomerInput
	var vendorID string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				if cmd.Flags().Changed("vendor") {
					in.VendorID = &vendorID
				}
				c, err := e.CreateCustomer(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&in.BusinessName, "business", "", "business name")
	cmd.Flags().StringVar(&in.OwnerName, "owner", "", "owner name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone")
	cmd.Flags().Float64Var(&in.RequestedAmount, "amount", 0, "requested amount")
	cmd.Flags().StringVar(&vendorID, "vendor", "", "lead source vendor id")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("business")
	return cmd
}

func customerListCmd() *cobra.Command {
	var f repo.CustomerFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				customers, err := r.ListCustomers(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(customers)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Business", "Stage", "Requested", "Funded"})
				for _, c := range customers {
					funded := ""
					if c.FundedAmount != nil {
						funded = fmt.Sprintf("%.0f", *c.FundedAmount)
					}
					tw.AppendRow(table.Row{c.ID, c.BusinessName, c.Stage,
						fmt.Sprintf("%.0f", c.RequestedAmount), funded})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Stage, "stage", "", "filter by stage")
	cmd.Flags().StringVar(&f.VendorID, "vendor", "", "filter by vendor")
	cmd.Flags().StringVar(&f.LenderID, "lender", "", "filter by lender")
	cmd.Flags().StringVar(&f.Search, "search", "", "search business and owner name")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "limit results")
	return cmd
}

func customerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <customer-id>",
		Short: "Show customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				c, err := r.GetCustomer(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func customerUpdateCmd() *cobra.Command {
	var business, owner, email, phone, notes string
	var amount float64
	cmd := &cobra.Command{
		Use:   "update <customer-id>",
		Short: "Update customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				var in engine.CustomerUpdate
				set := func(name string, dst **string, v *string) {
					if cmd.Flags().Changed(name) {
						*dst = v
					}
				}
				set("business", &in.BusinessName, &business)
				set("owner", &in.OwnerName, &owner)
				set("email", &in.Email, &email)
				set("phone", &in.Phone, &phone)
				set("notes", &in.Notes, &notes)
				if cmd.Flags().Changed("amount") {
					in.RequestedAmount = &amount
				}
				c, err := e.UpdateCustomer(ctx, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&business, "business", "", "business name")
	cmd.Flags().StringVar(&owner, "owner", "", "owner name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&phone, "phone", "", "phone")
	cmd.Flags().Float64Var(&amount, "amount", 0, "requested amount")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func customerStageCmd() *cobra.Command {
	var to, lenderID string
	var fundedAmount float64
	cmd := &cobra.Command{
		Use:   "stage <customer-id>",
		Short: "Change pipeline stage",
		Long:  "Moves a customer forward through the funnel or to lost. Skipping backward requires --force. Marking funded requires --funded-amount and --lender.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				ch := engine.StageChange{To: to, Force: viper.GetBool("force")}
				if cmd.Flags().Changed("funded-amount") {
					ch.FundedAmount = &fundedAmount
				}
				if cmd.Flags().Changed("lender") {
					ch.LenderID = &lenderID
				}
				c, err := e.ChangeCustomerStage(ctx, args[0], ch)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "target stage")
	cmd.Flags().Float64Var(&fundedAmount, "funded-amount", 0, "funded amount (required for funded)")
	cmd.Flags().StringVar(&lenderID, "lender", "", "funding lender id (required for funded)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func customerRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <customer-id>",
		Short: "Delete customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteCustomer(ctx, args[0])
			})
		},
	}
}

func customerSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Customer counts per stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				counts, err := r.CountCustomersByStage(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(counts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Stage", "Count"})
				for _, stage := range domain.Stages() {
					tw.AppendRow(table.Row{stage, counts[string(stage)]})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func vendorCmd() *cobra.Command {
	vendor := &cobra.Command{Use: "vendor", Short: "Manage marketing vendors"}
	vendor.AddCommand(vendorAddCmd())
	vendor.AddCommand(vendorListCmd())
	vendor.AddCommand(vendorUpdateCmd())
	vendor.AddCommand(vendorRmCmd())
	return vendor
}

func vendorFlags(cmd *cobra.Command, in *engine.VendorInput) {
	cmd.Flags().StringVar(&in.Name, "name", "", "vendor name")
	cmd.Flags().StringVar(&in.Channel, "channel", "", "marketing channel")
	cmd.Flags().Float64Var(&in.MonthlySpend, "spend", 0, "monthly spend")
	cmd.Flags().IntVar(&in.LeadsDelivered, "leads", 0, "leads delivered this month")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
}

func vendorAddCmd() *cobra.Command {
	var in engine.VendorInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add vendor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				v, err := e.CreateVendor(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(v)
			})
		},
	}
	vendorFlags(cmd, &in)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func vendorListCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vendors with cost per lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				vendors, err := r.ListVendors(ctx, activeOnly)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(vendors)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Channel", "Spend", "Leads", "CPL"})
				for _, v := range vendors {
					tw.AppendRow(table.Row{v.ID, v.Name, v.Channel,
						fmt.Sprintf("%.2f", v.MonthlySpend), v.LeadsDelivered,
						fmt.Sprintf("%.2f", v.CostPerLead())})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "active vendors only")
	return cmd
}

func vendorUpdateCmd() *cobra.Command {
	var in engine.VendorInput
	cmd := &cobra.Command{
		Use:   "update <vendor-id>",
		Short: "Update vendor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				v, err := e.UpdateVendor(ctx, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(v)
			})
		},
	}
	vendorFlags(cmd, &in)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func vendorRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <vendor-id>",
		Short: "Delete vendor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteVendor(ctx, args[0])
			})
		},
	}
}

func inboxCmd() *cobra.Command {
	inbox := &cobra.Command{Use: "inbox", Short: "Customer inbox"}
	inbox.AddCommand(inboxSendCmd())
	inbox.AddCommand(inboxListCmd())
	inbox.AddCommand(inboxReadCmd())
	return inbox
}

func inboxSendCmd() *cobra.Command {
	var customerID, subject, body string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				m, err := e.SendMessage(ctx, viper.GetString("actor-id"), customerID, subject, body)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&subject, "subject", "", "subject")
	cmd.Flags().StringVar(&body, "body", "", "message body")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func inboxListCmd() *cobra.Command {
	var f repo.MessageFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				msgs, err := r.ListMessages(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(msgs)
				}
				unread, err := r.CountUnreadMessages(ctx)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Customer", "From", "Subject", "Read", "When"})
				for _, m := range msgs {
					tw.AppendRow(table.Row{m.ID, m.CustomerID, m.SenderID, m.Subject, m.Read, m.CreatedAt})
				}
				tw.Render()
				fmt.Printf("%d unread\n", unread)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.CustomerID, "customer", "", "filter by customer")
	cmd.Flags().BoolVar(&f.UnreadOnly, "unread", false, "unread messages only")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "limit results")
	return cmd
}

func inboxReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <message-id>",
		Short: "Mark message read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.MarkMessageRead(ctx, args[0])
			})
		},
	}
}

func docCmd() *cobra.Command {
	doc := &cobra.Command{Use: "doc", Short: "Customer documents"}
	doc.AddCommand(docAddCmd())
	doc.AddCommand(docListCmd())
	doc.AddCommand(docRmCmd())
	return doc
}

func docAddCmd() *cobra.Command {
	var in engine.DocumentInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register document metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				d, err := e.RegisterDocument(ctx, viper.GetString("actor-id"), in)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&in.CustomerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&in.Name, "name", "", "document name")
	cmd.Flags().StringVar(&in.Kind, "kind", "", "document kind")
	cmd.Flags().StringVar(&in.StorageKey, "storage-key", "", "external storage key")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("storage-key")
	return cmd
}

func docListCmd() *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customer documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				docs, err := r.ListDocuments(ctx, customerID)
				if err != nil {
					return err
				}
				return printJSONOrTable(docs)
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func docRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <document-id>",
		Short: "Delete document metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteDocument(ctx, args[0])
			})
		},
	}
}

func calcCmd() *cobra.Command {
	var in unitecon.Inputs
	var save string
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Run the unit economics calculator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.Validate(); err != nil {
				return err
			}
			metrics := unitecon.Compute(in)
			if save != "" {
				return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
					s, err := e.SaveScenario(ctx, viper.GetString("actor-id"), save, in)
					if err != nil {
						return err
					}
					return printJSONOrTable(map[string]any{"scenario_id": s.ID, "metrics": metrics})
				})
			}
			if viper.GetBool("json") {
				return printJSON(metrics)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Metric", "Value"})
			tw.AppendRows([]table.Row{
				{"Qualified leads", fmt.Sprintf("%.1f", metrics.QualifiedLeads)},
				{"Applications", fmt.Sprintf("%.1f", metrics.Applications)},
				{"Funded deals", fmt.Sprintf("%.1f", metrics.FundedDeals)},
				{"Funded volume", fmt.Sprintf("%.2f", metrics.FundedVolume)},
				{"Gross commission", fmt.Sprintf("%.2f", metrics.GrossCommission)},
				{"Net revenue", fmt.Sprintf("%.2f", metrics.NetRevenue)},
				{"Total cost", fmt.Sprintf("%.2f", metrics.TotalCost)},
				{"Net profit", fmt.Sprintf("%.2f", metrics.NetProfit)},
				{"Margin", fmt.Sprintf("%.1f%%", metrics.Margin*100)},
				{"Cost per lead", fmt.Sprintf("%.2f", metrics.CostPerLead)},
				{"Cost per funded deal", fmt.Sprintf("%.2f", metrics.CostPerFundedDeal)},
				{"ROAS", fmt.Sprintf("%.2f", metrics.ROAS)},
				{"Break-even deals", fmt.Sprintf("%.1f", metrics.BreakEvenDeals)},
			})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().Float64Var(&in.MonthlyAdSpend, "ad-spend", 0, "monthly ad spend")
	cmd.Flags().Float64Var(&in.LeadsPerMonth, "leads", 0, "leads per month")
	cmd.Flags().Float64Var(&in.QualifiedRate, "qualified-rate", 0, "lead qualification rate 0..1")
	cmd.Flags().Float64Var(&in.ApplicationRate, "application-rate", 0, "application rate 0..1")
	cmd.Flags().Float64Var(&in.ApprovalRate, "approval-rate", 0, "approval rate 0..1")
	cmd.Flags().Float64Var(&in.FundingRate, "funding-rate", 0, "funding rate 0..1")
	cmd.Flags().Float64Var(&in.AvgFundedAmount, "avg-funded", 0, "average funded amount")
	cmd.Flags().Float64Var(&in.CommissionRate, "commission-rate", 0, "commission rate 0..1")
	cmd.Flags().Float64Var(&in.RenewalRate, "renewal-rate", 0, "renewal rate 0..1")
	cmd.Flags().Float64Var(&in.RenewalCommissionRate, "renewal-commission-rate", 0, "renewal commission rate 0..1")
	cmd.Flags().Float64Var(&in.ClawbackRate, "clawback-rate", 0, "clawback rate 0..1")
	cmd.Flags().Float64Var(&in.SalesRepCount, "reps", 0, "sales rep count")
	cmd.Flags().Float64Var(&in.SalesRepMonthlyCost, "rep-cost", 0, "monthly cost per rep")
	cmd.Flags().Float64Var(&in.SoftwareMonthlyCost, "software-cost", 0, "monthly software cost")
	cmd.Flags().Float64Var(&in.OtherOverhead, "overhead", 0, "other monthly overhead")
	cmd.Flags().StringVar(&save, "save", "", "save as a named scenario")
	return cmd
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run the due date sweep once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, cfg *config.Config) error {
				sweeper := &reminder.Sweeper{
					Engine:      e,
					Log:         newLogger(),
					HorizonDays: cfg.Reminders.HorizonDays,
				}
				return sweeper.Run(ctx)
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, cfg *config.Config) error {
				log := newLogger()
				e.Log = log
				authCfg := server.AuthConfig{JWTSecret: os.Getenv("FUNDLINE_JWT_SECRET"), Logger: log}
				if authCfg.JWTSecret == "" {
					return fmt.Errorf("FUNDLINE_JWT_SECRET is required for bearer auth")
				}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}

				if cfg.Reminders.Enabled {
					sweeper := &reminder.Sweeper{Engine: e, Log: log, HorizonDays: cfg.Reminders.HorizonDays}
					sched, err := reminder.NewScheduler(sweeper, cfg.Reminders.Time, log)
					if err != nil {
						return err
					}
					sched.Start()
					defer sched.Stop()
				}

				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				log.WithFields(logrus.Fields{"addr": addr, "base_path": basePath}).Info("serving Fundline API")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func apikeyCmd() *cobra.Command {
	apikey := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	apikey.AddCommand(apikeyCreateCmd())
	apikey.AddCommand(apikeyListCmd())
	apikey.AddCommand(apikeyRmCmd())
	return apikey
}

func apikeyCreateCmd() *cobra.Command {
	var actorID, name, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine, _ *config.Config) error {
				parsedRole, err := domain.ParseRole(role)
				if err != nil {
					return err
				}
				raw := e.NewID() + e.NewID()
				now := e.Now().UTC().Format(time.RFC3339)
				profile := domain.Profile{ActorID: actorID, Role: parsedRole, CreatedAt: now}
				if existing, err := e.Repo.GetProfile(ctx, actorID); err == nil {
					profile.Email = existing.Email
					profile.CreatedAt = existing.CreatedAt
				}
				if err := e.Repo.UpsertProfile(ctx, profile); err != nil {
					return err
				}
				k := domain.APIKey{
					ID:        e.NewID(),
					ActorID:   actorID,
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: now,
				}
				if err := e.Repo.InsertAPIKey(ctx, k); err != nil {
					return err
				}
				// the raw key is shown once and never stored
				return printJSONOrTable(map[string]string{"id": k.ID, "key": raw})
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id the key authenticates")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	cmd.Flags().StringVar(&role, "role", "user", "role (user|admin|super_admin)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func apikeyRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key-id>",
		Short: "Revoke API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine, *config.Config) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, newLogger())
	if st, err := domain.ParseStatus(cfg.Board.DefaultStatus); err == nil {
		e.DefaultStatus = st
	}
	if pr, err := domain.ParsePriority(cfg.Board.DefaultPriority); err == nil {
		e.DefaultPriority = pr
	}
	return fn(ctx, e, cfg)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
