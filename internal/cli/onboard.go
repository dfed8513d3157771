package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/arencloud/cloudgate/internal/clipboard"
	"github.com/arencloud/cloudgate/internal/config"
	"github.com/arencloud/cloudgate/internal/db"
	"github.com/arencloud/cloudgate/internal/logging"
	"github.com/arencloud/cloudgate/internal/notify"
	"github.com/arencloud/cloudgate/internal/onboarding"
	"github.com/arencloud/cloudgate/internal/registration"
)

var (
	onboardPersist bool
	onboardVerbose bool
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Run the interactive onboarding wizard",
	Long: `Create an account and connect cloud providers step by step.

With --persist the completed onboarding is written to the configured
database (DB_DRIVER, DB_PATH, DATABASE_URL).`,
	Args: cobra.NoArgs,
	RunE: runOnboard,
}

func init() {
	onboardCmd.Flags().BoolVar(&onboardPersist, "persist", false, "store the completed onboarding in the database")
	onboardCmd.Flags().BoolVarP(&onboardVerbose, "verbose", "v", false, "log to stderr")
}

// errCancelled is returned when the user aborts a form.
var errCancelled = errors.New("onboarding cancelled")

func runForm(f *huh.Form) error {
	if err := f.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errCancelled
		}
		return fmt.Errorf("form error: %w", err)
	}
	return nil
}

func runOnboard(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewNop()
	if onboardVerbose {
		logger = logging.New(cfg.Env)
	}

	var handoff onboarding.Handoff
	if onboardPersist {
		gdb, err := db.Open(cfg, logger)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		store := db.NewStore(gdb)
		defer store.Close()
		handoff = store
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	sess := onboarding.FromConfig(cfg, notify.Multi(printer(out), notify.Log(logger)), clipboard.System{}, handoff, logger)
	err = wizard(ctx, out, sess)
	if errors.Is(err, errCancelled) {
		fmt.Fprintln(out, mutedStyle.Render("Onboarding cancelled."))
		return nil
	}
	return err
}

// isValidation reports whether err is a user-facing rejection rather than a fault.
func isValidation(err error) bool {
	var e *apperr.Error
	return errors.As(err, &e)
}

// wizard drives sess through signup, provider connections and completion.
func wizard(ctx context.Context, out io.Writer, sess *onboarding.Session) error {
	bar := newBar()
	fmt.Fprint(out, renderProgress(bar, sess.State()))

	var form registration.Form
	for sess.Step() == onboarding.Signup {
		if err := runForm(signupForm(&form)); err != nil {
			return err
		}
		// validation failures are already reported through the notifier
		if _, err := sess.Signup(form); err != nil && !isValidation(err) {
			return err
		}
	}
	rec, _ := sess.Record()
	fmt.Fprintf(out, "\n%s\n", titleStyle.Render("Welcome, "+rec.DisplayName()+"!"))

	for {
		st := sess.State()
		fmt.Fprint(out, renderProgress(bar, st))
		if len(st.Connected) == st.Total {
			break
		}
		choice := ""
		pick := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().Title("Connect a cloud provider").Options(providerOptions(st)...).Value(&choice),
		))
		if err := runForm(pick); err != nil {
			return err
		}
		if choice == finishChoice {
			break
		}
		kind, err := catalog.ParseKind(choice)
		if err != nil {
			return err
		}
		if err := connectOne(ctx, out, sess, kind); err != nil {
			return err
		}
	}

	sum, err := sess.Complete(ctx)
	if err != nil {
		if isValidation(err) {
			return nil
		}
		return err
	}
	fmt.Fprint(out, renderProgress(bar, sess.State()))
	for _, c := range sum.Connections {
		d := catalog.MustLookup(c.Kind)
		fmt.Fprintf(out, "%s %s %s\n", badgeStyle.Render("Connected"), d.Name, mutedStyle.Render(c.Handle))
	}
	return nil
}

// connectOne fills and submits one provider dialog. A rejected submission
// keeps the dialog and offers the form again with the previous answers.
func connectOne(ctx context.Context, out io.Writer, sess *onboarding.Session, kind catalog.Kind) error {
	d, err := sess.OpenDialog(kind)
	if err != nil {
		return err
	}
	for {
		dr := newDraft(d)
		if err := runForm(dr.form()); err != nil {
			sess.CancelDialog()
			if errors.Is(err, errCancelled) {
				return nil
			}
			return err
		}
		if dr.copyExtID {
			_ = d.CopyExternalID()
		}
		if err := dr.apply(d); err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			continue
		}
		fmt.Fprintln(out, mutedStyle.Render("Connecting to "+d.Descriptor().Name+"..."))
		_, err := sess.Submit(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errCancelled
		}
		retry := true
		if err := runForm(huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title("Try again?").Value(&retry),
		))); err != nil || !retry {
			sess.CancelDialog()
			return nil
		}
	}
}
