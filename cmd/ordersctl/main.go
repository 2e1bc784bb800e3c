package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/arden-atelier/orderdesk/internal/app"
	"github.com/arden-atelier/orderdesk/internal/audit"
	"github.com/arden-atelier/orderdesk/internal/config"
	"github.com/arden-atelier/orderdesk/internal/db"
	"github.com/arden-atelier/orderdesk/internal/logging"
	"github.com/arden-atelier/orderdesk/internal/notify"
	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/arden-atelier/orderdesk/internal/store"
	"github.com/arden-atelier/orderdesk/internal/tabular"
)

const usage = `usage: ordersctl <command> [flags]

commands:
  import [-dry-run] [-sheet NAME] FILE   reconcile a CSV or XLSX order sheet
  reminders                              list urgent orders
  stats [-period today|week|month|year]  dashboard counters
  remind                                 send the reminder digest to Telegram

Set ORDER_STORE=memory to run without a database.`

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: "text"}, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.Store == config.StoreMemory {
		st = store.NewMemory()
	} else {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		st = store.New(pool)
	}

	cli := &cli{
		cfg:      cfg,
		store:    st,
		engine:   app.NewEngine(cfg, st, logger),
		notifier: app.NewNotifier(cfg, logger),
		audit:    audit.NewLogger(st),
		logger:   logger,
		out:      os.Stdout,
	}
	if err := cli.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	cfg      config.Config
	store    store.Store
	engine   *orders.Engine
	notifier *notify.Telegram
	audit    *audit.Logger
	logger   *slog.Logger
	out      io.Writer
}

var errUsage = errors.New(usage)

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "import":
		return c.importSheet(ctx, args[1:])
	case "reminders":
		return c.listReminders(ctx)
	case "remind":
		return c.sendReminders(ctx)
	case "stats":
		return c.stats(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func (c *cli) importSheet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dryRun := fs.Bool("dry-run", false, "preview without writing")
	sheet := fs.String("sheet", "", "xlsx sheet name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if fs.NArg() != 1 {
		return errors.New("import: exactly one file is required")
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	file, err := tabular.Decode(path, data, tabular.Options{MaxRows: c.cfg.ImportMaxRows, Sheet: *sheet})
	if err != nil {
		return err
	}

	if *dryRun {
		plan := orders.Plan(file.Rows)
		table := tablewriter.NewWriter(c.out)
		table.Header("Group", "Customer", "Rows", "Items", "Total", "Problem")
		for _, g := range plan.Groups {
			if err := table.Append([]string{g.Key, g.CustomerName, joinInts(g.Rows), strconv.Itoa(g.ValidItems), notify.FormatMoney(g.Total), g.Problem}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d groups, %d rows ignored (dry run, nothing written)\n", plan.GroupsFound, plan.RowsIgnored)
		return nil
	}

	report := c.engine.Reconciler.Reconcile(ctx, file.Rows)
	table := tablewriter.NewWriter(c.out)
	table.Header("Group", "Result", "Code", "Items", "Message")
	for _, o := range report.Outcomes {
		if err := table.Append([]string{o.Key, string(o.Result), o.Code, strconv.Itoa(o.Items), o.Message}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "imported %d, partial %d, skipped %d, new customers %d\n",
		report.Imported, report.Partial, report.Skipped, report.CustomersCreated)

	status := "completed"
	if report.Skipped > 0 || report.Partial > 0 {
		status = "completed_with_errors"
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	run, err := c.store.CreateImportRun(ctx, store.CreateImportRunParams{
		Filename:   file.Filename,
		FileSHA256: file.SHA256,
		Mode:       "apply",
		Status:     status,
		Report:     reportJSON,
	})
	if err != nil {
		return fmt.Errorf("save import run: %w", err)
	}
	if err := c.audit.Log(ctx, audit.Entry{
		Action:     audit.ImportAction("apply", "completed"),
		EntityType: audit.EntityImportRun,
		EntityID:   &run.ID,
		Source:     audit.SourceCLI,
		Metadata:   map[string]any{"filename": file.Filename, "status": status},
	}); err != nil {
		c.logger.Warn("audit_log_failed", "error", err)
	}
	return nil
}

func (c *cli) listReminders(ctx context.Context) error {
	reminders, err := c.engine.Reminders(ctx)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Code", "Customer", "Phone", "Due", "Days", "Status", "Remaining")
	for _, r := range reminders {
		if err := table.Append([]string{
			r.Code,
			r.CustomerName,
			r.CustomerPhone,
			r.DueDate.Format("02/01/2006"),
			strconv.Itoa(r.DaysLeft),
			string(r.Status),
			notify.FormatMoney(r.Remaining),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func (c *cli) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	rawPeriod := fs.String("period", "", "today, week, month or year")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	period, err := orders.ParsePeriod(*rawPeriod)
	if err != nil {
		return err
	}
	st, err := c.engine.Stats(ctx, period)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"Period", fmt.Sprintf("%s (from %s)", st.Period, st.From.Format("02/01/2006"))},
		{"Customers", strconv.Itoa(st.Customers)},
		{"Orders", strconv.Itoa(st.Orders)},
	}
	for _, s := range orders.AllStatuses {
		rows = append(rows, []string{"  " + string(s), strconv.Itoa(st.StatusCounts[s])})
	}
	rows = append(rows,
		[]string{"Planned quantity", st.TotalQuantity.String()},
		[]string{"Period revenue", notify.FormatMoney(st.PeriodRevenue)},
		[]string{"Month revenue", notify.FormatMoney(st.MonthRevenue)},
		[]string{"Year revenue", notify.FormatMoney(st.YearRevenue)},
		[]string{"Active", strconv.Itoa(st.ActiveOrders)},
		[]string{"Overdue", strconv.Itoa(st.OverdueOrders)},
		[]string{"Upcoming", strconv.Itoa(st.UpcomingOrders)},
	)

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func (c *cli) sendReminders(ctx context.Context) error {
	if !c.notifier.Configured() {
		return notify.ErrNotConfigured
	}
	reminders, err := c.engine.Reminders(ctx)
	if err != nil {
		return err
	}
	report, err := c.notifier.SendReminders(ctx, reminders, c.engine.Now())
	if err != nil {
		return err
	}
	if err := c.audit.Log(ctx, audit.Entry{
		Action:     audit.ActionRemindersSent,
		EntityType: audit.EntityReminder,
		Source:     audit.SourceCLI,
		Metadata:   map[string]any{"reminders": report.Reminders, "sent": report.Sent, "failed": report.Failed},
	}); err != nil {
		c.logger.Warn("audit_log_failed", "error", err)
	}
	fmt.Fprintf(c.out, "%d reminders, %d messages sent, %d failed\n", report.Reminders, report.Sent, report.Failed)
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
