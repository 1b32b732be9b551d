package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-foodscore/internal/config"
	"github.com/jrsteele09/go-foodscore/internal/logging"
	"github.com/jrsteele09/go-foodscore/web"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var errPanicRecovered = errors.New("panic recovered")

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	c, err := config.New()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel(), errOut)

	if len(args) == 0 {
		usage(errOut)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n\n", args[0])
		usage(errOut)
		return errUsage
	}

	if cmd.standalone {
		return cmd.run(ctx, &app{cfg: c, out: out, errOut: errOut}, args[1:])
	}
	a, err := newApp(ctx, c, in, out, errOut)
	if err != nil {
		return err
	}
	defer a.Close()
	return cmd.run(ctx, a, args[1:])
}

// serveCmd runs the web UI until interrupted, starting over after a recovered panic
func serveCmd(ctx context.Context, a *app, _ []string) error {
	for {
		err := run(ctx, a)
		if errors.Is(err, errPanicRecovered) {
			log.Error().Err(err).Msg("restarting server")
			time.Sleep(1 * time.Second)
			continue
		}
		if err != nil {
			return err
		}
		break
	}
	log.Info().Msg("Server stopped")
	return nil
}

func run(ctx context.Context, a *app) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errPanicRecovered
		}
	}()

	handler, err := web.New(a.cfg, web.Deps{Auth: a.auth, Workflow: a.workflow, Backend: a.client})
	if err != nil {
		return err
	}
	defer handler.Close()
	displayAppname(a.out, a.cfg.GetAppName())
	server := &http.Server{Addr: a.cfg.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	stopCtx, stop := waitForStopSignal(ctx)
	defer stop()

	errs := startListener(server, listenAndServe)

	select {
	case err := <-errs:
		return err
	case <-stopCtx.Done():
	}
	return shutdown(server)
}

// startListener runs listen on its own goroutine. A panic there comes back as errPanicRecovered.
func startListener(server *http.Server, listen func(*http.Server) error) <-chan error {
	errs := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("Recovered from panic in listener")
				debug.PrintStack()
				errs <- errPanicRecovered
			}
		}()
		errs <- listen(server)
	}()
	return errs
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server.ListenAndServe")
	}
	return nil
}

func waitForStopSignal(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
