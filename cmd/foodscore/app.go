package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-foodscore/analysis"
	"github.com/jrsteele09/go-foodscore/api"
	"github.com/jrsteele09/go-foodscore/auth"
	"github.com/jrsteele09/go-foodscore/guard"
	"github.com/jrsteele09/go-foodscore/internal/config"
	"github.com/jrsteele09/go-foodscore/kvstore"
	"github.com/jrsteele09/go-foodscore/kvstore/filestore"
	"github.com/jrsteele09/go-foodscore/kvstore/redisstore"
	"github.com/jrsteele09/go-foodscore/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// app holds everything a command needs. It is built once per invocation.
type app struct {
	cfg      config.Config
	client   *api.Client
	auth     *auth.Context
	workflow *analysis.Workflow
	guard    *guard.Guard
	in       *bufio.Reader
	out      io.Writer
	errOut   io.Writer
	closers  []io.Closer
}

func newApp(ctx context.Context, cfg config.Config, in io.Reader, out, errOut io.Writer) (*app, error) {
	a := &app{cfg: cfg, in: bufio.NewReader(in), out: out, errOut: errOut}

	repo, err := a.openRepo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] openRepo")
	}
	store, err := sessions.NewStore(repo, sessions.WithTokenValidator(tokenValidator(cfg)))
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] sessions.NewStore")
	}

	a.client, err = api.NewClient(cfg.GetBackendURL(),
		api.WithTimeout(cfg.GetRequestTimeout()),
		api.WithUserAgent(fmt.Sprintf("%s-cli/%s", strings.ToLower(cfg.GetAppName()), version)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] api.NewClient")
	}
	a.auth, err = auth.NewContext(store, a.client)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] auth.NewContext")
	}
	a.workflow, err = analysis.New(a.client, a.auth, analysis.OnStatus(func(s analysis.Status) {
		log.Debug().Str("status", s.String()).Msg("analysis")
	}))
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] analysis.New")
	}
	a.guard = guard.New(a.auth)

	session := a.auth.CheckAuth(ctx)
	log.Debug().Bool("authenticated", session.IsAuthenticated).Msg("session restored")
	return a, nil
}

func (a *app) openRepo(ctx context.Context) (kvstore.Repo, error) {
	switch driver := a.cfg.GetStoreDriver(); driver {
	case config.StoreDriverMemory:
		return kvstore.NewInMemoryRepo(), nil
	case config.StoreDriverRedis:
		store, err := redisstore.Open(ctx, a.cfg.GetRedisURL(),
			redisstore.WithPrefix(a.cfg.GetRedisKeyPrefix()),
			redisstore.WithTTL(a.cfg.GetRedisTTL()),
		)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case config.StoreDriverFile:
		var options []filestore.Option
		if passphrase := a.cfg.GetStorePassphrase(); passphrase != "" {
			options = append(options, filestore.WithPassphrase(passphrase))
		}
		return filestore.New(a.cfg.GetStorePath(), options...)
	default:
		return nil, errors.Errorf("unknown store driver %q", driver)
	}
}

// password takes the -password flag, then FOODSCORE_PASSWORD, then one line of stdin, so it
// need not appear in the process list
func (a *app) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if value := config.GetEnv(passwordEnvVar, ""); value != "" {
		return value, nil
	}
	fmt.Fprint(a.errOut, "Password: ")
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "[app.password] read stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func tokenValidator(cfg config.SessionConfig) sessions.TokenValidator {
	if cfg.GetRejectExpiredTokens() {
		return sessions.ExpiryValidator(cfg.GetTokenLeeway())
	}
	return sessions.SyntaxValidator()
}
