package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alvesdmateus/slotship/internal/environment"
	"github.com/alvesdmateus/slotship/internal/hosting"
	"github.com/alvesdmateus/slotship/internal/mailmerge"
	"github.com/alvesdmateus/slotship/internal/pipeline"
	"github.com/alvesdmateus/slotship/internal/secrets"
	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/pkg/config"
	"github.com/alvesdmateus/slotship/pkg/database"
	"github.com/alvesdmateus/slotship/pkg/models"
)

var (
	runBranch     string
	runStatePath  string
	runProvider   string
	runSkipVerify bool
)

var runCmd = &cobra.Command{
	Use:   "run <repo-url>",
	Short: "Run the deployment pipeline locally against a repository",
	Long: `Run executes the full pipeline in-process: checkout, runtime
provisioning, dependency install, artifact packaging and deployment
dispatch. The workflow definition is read from the repository's own
deploy.yml after checkout. Run state is recorded in a local SQLite
database so list and logs work against it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		logger := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()

		db, err := database.NewSQLite(runStatePath)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := state.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate state database: %w", err)
		}

		repo := state.NewRepository(db)

		provider, err := environment.NewProvider(environment.ProviderType(runProvider))
		if err != nil {
			return err
		}

		redactor := secrets.NewRedactor(cfg.Hosting.PublishPassword)

		client := hosting.NewClient(hosting.Config{
			SCMSuffix:    cfg.Hosting.SCMSuffix,
			SiteSuffix:   cfg.Hosting.SiteSuffix,
			PollInterval: cfg.Hosting.PollInterval,
			Timeout:      cfg.Hosting.DeployTimeout,
		}, logger)
		cred := hosting.Credential{
			User:     cfg.Hosting.PublishUser,
			Password: cfg.Hosting.PublishPassword,
		}

		var verifier *mailmerge.Verifier
		if !runSkipVerify {
			verifier = mailmerge.NewVerifier(logger)
		}

		engine := pipeline.NewEngine(
			pipeline.Stages(provider, client, cred, verifier),
			pipeline.NewTracker(repo),
			redactor,
			cfg.Pipeline.StageTimeout,
			logger,
		)

		ctx := cmd.Context()

		// Workflow name and target stay empty until checkout loads the
		// repository's deploy.yml
		run := &state.PipelineRun{
			ID:      uuid.New(),
			Trigger: models.TriggerDispatch,
			RepoURL: args[0],
			Branch:  runBranch,
			Status:  models.StatusQueued,
		}
		if err := repo.CreateRun(ctx, run); err != nil {
			return fmt.Errorf("create run record: %w", err)
		}

		workdir, err := os.MkdirTemp("", "slotship-run-")
		if err != nil {
			return fmt.Errorf("create working directory: %w", err)
		}
		workdir = filepath.Join(workdir, "tree")
		defer os.RemoveAll(filepath.Dir(workdir))

		rc := &pipeline.RunContext{
			RunID:        run.ID,
			RepoURL:      args[0],
			Branch:       runBranch,
			WorkflowPath: cfg.Pipeline.WorkflowPath,
			Workdir:      workdir,
			Logger:       logger,
		}

		if err := repo.MarkRunStarted(ctx, run.ID); err != nil {
			return fmt.Errorf("mark run started: %w", err)
		}

		cmd.Printf("Run %s started\n", run.ID)

		if pipelineErr := engine.Execute(ctx, rc); pipelineErr != nil {
			if rc.Workflow != nil {
				run.CommitSHA = rc.CommitSHA
				run.WorkflowName = rc.Workflow.Name
				run.AppName = rc.Workflow.Deploy.App
				run.Slot = rc.Workflow.SlotName()
				if err := repo.UpdateRun(ctx, run); err != nil {
					logger.Error().Err(err).Msg("Failed to update run record")
				}
			}
			redacted := redactor.RedactError(pipelineErr)
			if err := repo.MarkRunFailed(ctx, run.ID, redacted); err != nil {
				logger.Error().Err(err).Msg("Failed to record run failure")
			}
			return fmt.Errorf("pipeline run %s failed: %s", run.ID, redacted)
		}

		// Carry forward what checkout and the workflow resolved
		run.CommitSHA = rc.CommitSHA
		if rc.Workflow != nil {
			run.WorkflowName = rc.Workflow.Name
			run.AppName = rc.Workflow.Deploy.App
			run.Slot = rc.Workflow.SlotName()
		}
		if err := repo.UpdateRun(ctx, run); err != nil {
			logger.Error().Err(err).Msg("Failed to update run record")
		}
		if err := repo.MarkRunSucceeded(ctx, run.ID, rc.Result.URL); err != nil {
			return fmt.Errorf("mark run succeeded: %w", err)
		}

		cmd.Printf("Run %s succeeded\n", run.ID)
		cmd.Printf("Deployed to %s\n", rc.Result.URL)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runBranch, "branch", "", "Branch to check out (default branch when empty)")
	runCmd.Flags().StringVar(&runStatePath, "state", "slotship.db", "Path to the local state database")
	runCmd.Flags().StringVar(&runProvider, "provider", "local", "Execution environment provider (docker or local)")
	runCmd.Flags().BoolVar(&runSkipVerify, "skip-verify", false, "Skip post-deployment verification")
}
