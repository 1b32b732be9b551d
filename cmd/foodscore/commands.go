package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jrsteele09/go-foodscore/analysis"
	"github.com/jrsteele09/go-foodscore/api"
	"github.com/jrsteele09/go-foodscore/auth"
	apperrors "github.com/jrsteele09/go-foodscore/internal/errors"
	"github.com/jrsteele09/go-foodscore/score"
	"github.com/pkg/errors"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

var errUsage = errors.New("usage")

const passwordEnvVar = "FOODSCORE_PASSWORD"

type command struct {
	summary string
	// standalone commands run without a session store or backend client
	standalone bool
	run        func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"serve":   {summary: "run the local web UI", run: serveCmd},
	"login":   {summary: "sign in and keep the session", run: loginCmd},
	"logout":  {summary: "forget the stored session", run: logoutCmd},
	"status":  {summary: "show who is signed in", run: statusCmd},
	"signup":  {summary: "create an account", run: signupCmd},
	"scan":    {summary: "score a product from two label photos", run: scanCmd},
	"manual":  {summary: "score a product from typed-in label values", run: manualCmd},
	"profile": {summary: "show your profile", run: profileCmd},
	"history": {summary: "list past analyses", run: historyCmd},
	"version": {summary: "print the version", standalone: true, run: versionCmd},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: foodscore <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// guarded runs fn only when a session is present, like a protected view
func (a *app) guarded(ctx context.Context, fn func() error) error {
	r := &terminalRenderer{errOut: a.errOut, content: fn}
	a.guard.Enter(ctx, r)
	return r.err
}

func versionCmd(_ context.Context, a *app, _ []string) error {
	fmt.Fprintln(a.out, version)
	return nil
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	email := fs.String("email", "", "account email")
	passwordFlag := fs.String("password", "", "account password (else "+passwordEnvVar+" or stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}
	password, err := a.password(*passwordFlag)
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("a password is required")
	}

	if !a.auth.Login(ctx, *email, password) {
		return errors.New(a.auth.Error())
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", a.auth.User().DisplayName())
	return nil
}

func logoutCmd(ctx context.Context, a *app, _ []string) error {
	a.auth.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func statusCmd(_ context.Context, a *app, _ []string) error {
	session := a.auth.Session()
	if !session.IsAuthenticated {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", session.User.DisplayName(), session.User.Email)
	return nil
}

func signupCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "signup")
	form := auth.RegisterForm{}
	fs.StringVar(&form.FullName, "name", "", "full name")
	fs.StringVar(&form.Email, "email", "", "account email")
	passwordFlag := fs.String("password", "", "account password (else "+passwordEnvVar+" or stdin)")
	fs.StringVar(&form.ConfirmPassword, "confirm", "", "repeat the password (defaults to the password)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	password, err := a.password(*passwordFlag)
	if err != nil {
		return err
	}
	form.Password = password
	if form.ConfirmPassword == "" {
		form.ConfirmPassword = form.Password
	}

	if _, err := a.auth.Register(ctx, form); err != nil {
		return errors.New(a.auth.Error())
	}
	fmt.Fprintln(a.out, "Account created. Run `foodscore login` to sign in.")
	return nil
}

func scanCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "scan")
	nutritionPath := fs.String("nutrition", "", "photo of the nutrition facts panel")
	ingredientsPath := fs.String("ingredients", "", "photo of the ingredients list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.guarded(ctx, func() error {
		var in analysis.ScanInput
		var err error
		if *nutritionPath != "" {
			if in.NutritionImage, err = analysis.LoadImage(*nutritionPath); err != nil {
				return err
			}
		}
		if *ingredientsPath != "" {
			if in.IngredientsImage, err = analysis.LoadImage(*ingredientsPath); err != nil {
				return err
			}
		}
		p := &terminalPresenter{out: a.out}
		err = a.workflow.SubmitScan(ctx, in, p)
		a.dropRejectedSession(ctx, err)
		return submitted(err, p)
	})
}

func manualCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "manual")
	in := analysis.ManualInput{}
	fs.StringVar(&in.Calories, "calories", "", "calories (kcal)")
	fs.StringVar(&in.Protein, "protein", "", "protein (g)")
	fs.StringVar(&in.Fats, "fats", "", "total fat (g)")
	fs.StringVar(&in.Carbohydrates, "carbohydrates", "", "carbohydrates (g)")
	fs.StringVar(&in.Sugar, "sugar", "", "sugar (g)")
	fs.StringVar(&in.Sodium, "sodium", "", "sodium (mg)")
	fs.StringVar(&in.SaturatedFat, "saturated-fat", "", "saturated fat (g)")
	fs.StringVar(&in.TransFat, "trans-fat", "", "trans fat (g)")
	fs.StringVar(&in.Cholesterol, "cholesterol", "", "cholesterol (mg)")
	fs.StringVar(&in.Ingredients, "ingredients", "", "ingredients list as printed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.guarded(ctx, func() error {
		p := &terminalPresenter{out: a.out}
		err := a.workflow.SubmitManual(ctx, in, p)
		a.dropRejectedSession(ctx, err)
		return submitted(err, p)
	})
}

// dropRejectedSession forgets the stored session once the backend refuses its access token
func (a *app) dropRejectedSession(ctx context.Context, err error) {
	if api.IsUnauthorized(err) {
		a.auth.Logout(ctx)
		fmt.Fprintln(a.errOut, "The stored session was rejected. Please log in again.")
	}
}

// submitted turns a workflow error into what the user should read
func submitted(err error, p *terminalPresenter) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrIncompleteScan):
		return errors.New("both -nutrition and -ingredients images are required")
	case errors.Is(err, apperrors.ErrSubmissionFailed) && p.alert != "":
		return errors.New(p.alert)
	}
	return err
}

func profileCmd(ctx context.Context, a *app, _ []string) error {
	profile, err := a.client.Profile(ctx, a.auth)
	if err != nil {
		a.dropRejectedSession(ctx, err)
		return errors.Wrap(err, "Failed to load profile data")
	}
	fmt.Fprintf(a.out, "%s <%s>\n", profile.FullName, profile.Email)
	if profile.DateJoined != "" {
		fmt.Fprintf(a.out, "Member since %s\n", profile.DateJoined)
	}
	return nil
}

func historyCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "history")
	limit := fs.Int("limit", a.cfg.GetHistoryLimit(), "number of analyses to list")
	since := fs.Duration("since", 0, "only analyses newer than this, e.g. 168h")
	if err := fs.Parse(args); err != nil {
		return err
	}

	query := api.HistoryQuery{Limit: limit}
	if *since > 0 {
		query.StartDate = time.Now().Add(-*since)
	}
	items, err := a.client.History(ctx, a.auth, query)
	if err != nil {
		a.dropRejectedSession(ctx, err)
		return errors.Wrap(err, "Failed to load history")
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No analyses yet.")
		return nil
	}
	for _, item := range items {
		g := score.NewGauge(item.TotalScore)
		fmt.Fprintf(a.out, "%-6d %s  %5s %s %s\n", item.HistoryID, item.CreatedAt.Format("2006-01-02 15:04"), g.Display, bar(g), g.Category.Name)
	}
	return nil
}
