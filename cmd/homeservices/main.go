// Command homeservices drives the client core from a terminal: sign up, sign
// in, edit the profile and sign out against the marketplace API. Sessions
// survive between runs when session.credentialstore is "redis".
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/app"
	"github.com/junnyjoe/home-services/internal/auth"
	"github.com/junnyjoe/home-services/internal/config"
	"github.com/junnyjoe/home-services/internal/guard"
	"github.com/junnyjoe/home-services/internal/log"
	"github.com/junnyjoe/home-services/internal/validation"
)

const passwordEnv = "HOMESERVICES_PASSWORD"

func usage() {
	fmt.Fprintf(os.Stderr, `usage: homeservices <command> [flags]

commands:
  status                         show the current session
  register -first -last -email [-phone] [-role CLIENT|PROVIDER]
  login -email                   password is read from $%s
  profile -first -last -email [-phone]
  lang <code>                    set the interface language
  logout
`, passwordEnv)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := log.New(cfg.Environment)
	if cfg.Session.CredentialStore != "redis" {
		logger.Debug().Msg("credentials are kept in memory and end with this run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{
		Navigator: guard.NavigatorFunc(func(target string) {
			logger.Info().Str("target", target).Msg("navigate")
		}),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start client")
	}
	a.Resume(ctx)

	err = run(ctx, a, os.Args[1], os.Args[2:])
	if err != nil {
		report(ctx, logger, a, err)
	}
	if closeErr := a.Close(); closeErr != nil {
		logger.Error().Err(closeErr).Msg("close client")
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "status":
		return status(ctx, a)
	case "register":
		return register(ctx, a, args)
	case "login":
		return login(ctx, a, args)
	case "profile":
		return profile(ctx, a, args)
	case "lang":
		if len(args) != 1 {
			return errors.New("lang takes exactly one language code")
		}
		return a.Auth.SetLanguage(ctx, args[0])
	case "logout":
		if !a.Auth.IsAuthenticated(ctx) {
			return auth.ErrNotAuthenticated
		}
		a.Auth.Logout(ctx)
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func status(ctx context.Context, a *app.App) error {
	state := a.Auth.UIState(ctx)
	if !state.Authenticated {
		fmt.Println(a.I18n.T(a.Auth.Language(ctx), "auth.signedOut", nil))
		return nil
	}
	fmt.Printf("%s <%s> %s\n", state.DisplayName, state.Email, state.RoleLabel)
	return nil
}

type profileFlags struct {
	first, last, email, phone *string
}

func bindProfile(fs *flag.FlagSet) profileFlags {
	return profileFlags{
		first: fs.String("first", "", "first name"),
		last:  fs.String("last", "", "last name"),
		email: fs.String("email", "", "email address"),
		phone: fs.String("phone", "", "phone number"),
	}
}

func (p profileFlags) fields() validation.Fields {
	return validation.Fields{
		"firstName": *p.first,
		"lastName":  *p.last,
		"email":     *p.email,
		"phone":     *p.phone,
	}
}

func register(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	p := bindProfile(fs)
	role := fs.String("role", "CLIENT", "CLIENT or PROVIDER")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fields := p.fields()
	password := os.Getenv(passwordEnv)
	fields["password"] = password
	fields["confirmPassword"] = password
	fields["role"] = *role

	user, err := a.Auth.Register(ctx, fields)
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", user.Email, user.ID)
	return nil
}

func login(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.Auth.RedirectIfAuthenticated(ctx) {
		return errors.New("already signed in, log out first")
	}

	user, err := a.Auth.Login(ctx, *email, os.Getenv(passwordEnv))
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", user.DisplayName())
	return nil
}

func profile(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	p := bindProfile(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.Auth.RequireAuth(ctx) {
		return auth.ErrNotAuthenticated
	}

	user, err := a.Auth.UpdateProfile(ctx, p.fields())
	if err != nil {
		return err
	}
	fmt.Printf("profile saved for %s\n", user.DisplayName())
	return nil
}

// report prints form errors field by field and everything else as one line.
func report(ctx context.Context, logger zerolog.Logger, a *app.App, err error) {
	var formErr *validation.FormError
	if errors.As(err, &formErr) {
		for field, msgs := range formErr.Errors {
			for _, msg := range msgs {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
		}
		return
	}

	var lockout *auth.LockoutError
	if errors.As(err, &lockout) {
		logger.Warn().Int("minutes", lockout.Minutes()).Msg("account locked")
	}
	fmt.Fprintln(os.Stderr, a.Auth.ErrorMessage(ctx, err))
}
