// studioctl runs maintenance tasks against the studio database.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Freeeeeet/studio_manager/internal/app"
	"github.com/Freeeeeet/studio_manager/internal/config"
	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/Freeeeeet/studio_manager/internal/service"
	"github.com/Freeeeeet/studio_manager/internal/session"
)

func main() {
	r := &runner{}

	cmd := &cli.Command{
		Name:   "studioctl",
		Usage:  "Maintenance tasks for the studio manager",
		Before: r.setup,
		After:  r.teardown,
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Database migrations",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "Apply pending migrations",
						Action: r.migrateUp,
					},
					{
						Name:   "version",
						Usage:  "Print the current schema version",
						Action: r.migrateVersion,
					},
				},
			},
			{
				Name:   "materialize",
				Usage:  "Bring recurring class occurrences in line with their templates",
				Action: r.materialize,
			},
			{
				Name:   "sweep-overdue",
				Usage:  "Mark sent invoices past their due date as overdue",
				Action: r.sweepOverdue,
			},
			{
				Name:  "render-week",
				Usage: "Render a studio week to a PNG file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "studio",
						Usage:    "Studio ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Any day of the week, YYYY-MM-DD (default today)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "week.png",
					},
				},
				Action: r.renderWeek,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("studioctl: %v", err)
	}
}

type runner struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func (r *runner) setup(ctx context.Context, _ *cli.Command) (context.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, err
	}
	r.cfg = cfg
	r.logger = app.NewLogger(cfg.Environment)

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return ctx, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return ctx, fmt.Errorf("ping database: %w", err)
	}
	r.pool = pool
	return ctx, nil
}

func (r *runner) teardown(context.Context, *cli.Command) error {
	if r.pool != nil {
		r.pool.Close()
	}
	if r.logger != nil {
		_ = r.logger.Sync()
	}
	return nil
}

func (r *runner) migrator() (*app.Migrator, error) {
	return app.NewMigrator(r.pool, r.cfg.MigrationsPath, r.logger)
}

func (r *runner) migrateUp(ctx context.Context, _ *cli.Command) error {
	mg, err := r.migrator()
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Run(ctx)
}

func (r *runner) migrateVersion(ctx context.Context, _ *cli.Command) error {
	mg, err := r.migrator()
	if err != nil {
		return err
	}
	defer mg.Close()

	version, err := mg.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Println(version)
	return nil
}

func (r *runner) classService() *service.ClassService {
	db := base.NewRepository(r.pool)
	studios := service.NewStudioService(
		repository.NewStudioRepository(db),
		repository.NewStudentRepository(db),
		service.NewReferenceCache(r.cfg.SessionTTL),
		r.logger,
	)
	return service.NewClassService(
		repository.NewClassRepository(db),
		repository.NewStudentRepository(db),
		studios,
		r.logger,
	)
}

func (r *runner) materialize(ctx context.Context, _ *cli.Command) error {
	created, deleted, err := r.classService().ReconcileAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("created %d, deleted %d occurrences\n", created, deleted)
	return nil
}

func (r *runner) sweepOverdue(ctx context.Context, _ *cli.Command) error {
	db := base.NewRepository(r.pool)
	invoices := service.NewInvoiceService(
		repository.NewInvoiceRepository(db),
		repository.NewStudioRepository(db),
		r.logger,
	)
	n, err := invoices.SweepOverdue(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d invoices marked overdue\n", n)
	return nil
}

func (r *runner) renderWeek(ctx context.Context, cmd *cli.Command) error {
	studioID, err := uuid.Parse(cmd.String("studio"))
	if err != nil {
		return fmt.Errorf("invalid studio id: %w", err)
	}

	day := time.Now()
	if raw := cmd.String("date"); raw != "" {
		day, err = service.ParseDate("date", raw)
		if err != nil {
			return err
		}
	}

	// Operator view: the whole studio, like its owner sees it.
	sess := &session.Session{Role: model.RoleOwner, StudioID: studioID}

	img, err := r.classService().RenderWeek(ctx, sess, day)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if err := os.WriteFile(output, img, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	fmt.Printf("week image saved to %s\n", output)
	return nil
}
