package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	systemd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nestybox/horizon-ipc/config"
	"github.com/nestybox/horizon-ipc/diag"
	"github.com/nestybox/horizon-ipc/ipc"
	"github.com/nestybox/horizon-ipc/kernel"
	"github.com/nestybox/horizon-ipc/sm"
)

// Build-time variables, set via -ldflags in a real release build.
var (
	edition = "horizon-ipc"
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := cli.NewApp()
	app.Name = "hipcd"
	app.Usage = "host kernel IPC services and optionally MITM-intercept them"
	app.Version = version

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("%s\n", edition)
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	}

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Value: "/etc/hipcd/hipcd.yaml",
			Usage: "path to the daemon's YAML config file",
		},
		cli.StringFlag{
			Name:  "log",
			Usage: "file to write logs to (default: stderr)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log level: debug, info, warning, error, fatal",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "log format: text, json",
		},
		cli.BoolFlag{
			Name:  "cpu-profiling",
			Usage: "enable cpu profiling",
		},
		cli.BoolFlag{
			Name:  "memory-profiling",
			Usage: "enable memory profiling",
		},
	}

	app.Before = setupLogging
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func setupLogging(c *cli.Context) error {
	if path := c.String("log"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("hipcd: open log file %s: %w", path, err)
		}
		logrus.SetOutput(f)
	} else {
		logrus.SetOutput(os.Stderr)
	}

	switch c.String("log-format") {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("hipcd: unsupported log format %q", c.String("log-format"))
	}

	switch c.String("log-level") {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	default:
		return fmt.Errorf("hipcd: unsupported log level %q", c.String("log-level"))
	}
	return nil
}

// runProfiler starts whichever profiling mode was requested. Only one of
// cpu/memory profiling may run at a time; the caller (exitHandler) stops
// it on shutdown rather than relying on profile's own signal hook, since
// this process installs its own signal handling.
func runProfiler(c *cli.Context) (interface{ Stop() }, error) {
	switch {
	case c.Bool("cpu-profiling") && c.Bool("memory-profiling"):
		return nil, fmt.Errorf("hipcd: cpu-profiling and memory-profiling are mutually exclusive")
	case c.Bool("cpu-profiling"):
		return profile.Start(profile.CPUProfile, profile.NoShutdownHook), nil
	case c.Bool("memory-profiling"):
		return profile.Start(profile.MemProfile, profile.NoShutdownHook), nil
	default:
		return nil, nil
	}
}

// exitHandler blocks for a terminating signal, then tears the daemon down:
// dump goroutines for the crash-like signals, tell systemd we're stopping,
// cancel ctx (which unwinds every ServerManager.LoopProcess and the diag
// server), and stop profiling.
func exitHandler(signalChan chan os.Signal, cancel context.CancelFunc, prof interface{ Stop() }) {
	sig := <-signalChan
	logrus.Infof("caught signal %v, shutting down", sig)

	_, _ = systemd.SdNotify(false, systemd.SdNotifyStopping)

	switch sig {
	case syscall.SIGABRT, syscall.SIGQUIT, syscall.SIGSEGV:
		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		logrus.Errorf("goroutine dump:\n%s", buf[:n])
	}

	cancel()
	if prof != nil {
		prof.Stop()
	}
}

// passthroughMitmService is the demonstration MITM descriptor hipcd hosts
// for every config entry marked mitm: true. It always elects to intercept
// and hosts a session object with an empty command table, so every
// request falls through ServerManager's no-match path to forwarding.
// ServerManager accepts MITM sessions without a forward session, so that
// forwarding fails and each request is answered with an error response;
// no request reaches the upstream service.
type passthroughMitmService struct{}

func (passthroughMitmService) CommandMetadataTable() []ipc.CommandMetadata { return nil }

func (passthroughMitmService) NewMitmInstance(info ipc.MitmProcessInfo) ipc.SessionObject {
	return passthroughSession{}
}

func (passthroughMitmService) ShouldMitm(info ipc.MitmProcessInfo) bool { return true }

// passthroughSession is also used to host plain (non-MITM) configured
// services: it accepts sessions but answers no commands, since hipcd
// itself implements no application-level services, only the framework.
type passthroughSession struct{}

func (passthroughSession) CommandMetadataTable() []ipc.CommandMetadata { return nil }

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	log := logrus.NewEntry(logrus.StandardLogger())

	prof, err := runProfiler(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	sys := kernel.NewLocal()

	reg := prometheus.NewRegistry()
	metrics := diag.NewMetrics(reg)
	store := diag.NewSnapshotStore(afero.NewOsFs(), cfg.Diag.SnapshotRoot)

	manager := ipc.NewServerManager(sys, cfg.PointerBufSize, log.WithField("component", "ipc"))
	manager.SetMetrics(metrics)

	smRegistry := sm.NewRegistry()
	smServer := sm.NewServer(sys, smRegistry, log.WithField("component", "sm"))

	var grpcServer *grpc.Server
	var smClient sm.ServiceManagerClient
	if cfg.SmAddr != "" {
		lis, err := net.Listen("tcp", cfg.SmAddr)
		if err != nil {
			return fmt.Errorf("hipcd: listen on sm addr %s: %w", cfg.SmAddr, err)
		}
		grpcServer = grpc.NewServer()
		sm.RegisterServer(grpcServer, smServer)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				log.WithError(err).Error("sm grpc server exited")
			}
		}()

		cc, err := grpc.NewClient(cfg.SmAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("hipcd: dial sm addr %s: %w", cfg.SmAddr, err)
		}
		smClient = sm.NewClient(cc)
	}

	if smClient != nil {
		manager.SetUnregistrar(smUnregistrar{client: smClient})
		for _, entry := range cfg.Services {
			if err := registerConfiguredService(ctx, smClient, manager, entry, log); err != nil {
				return err
			}
		}
	} else {
		log.Warn("sm_addr is empty, hosting no configured services")
	}

	var diagServer *diag.Server
	if cfg.Diag.Enabled {
		diagServer = diag.NewServer(cfg.Diag.Addr, reg, store, log.WithField("component", "diag"))
		go func() {
			if err := diagServer.Run(ctx); err != nil {
				log.WithError(err).Error("diag server exited")
			}
		}()
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGABRT)
	go exitHandler(signalChan, cancel, prof)

	_, _ = systemd.SdNotify(false, systemd.SdNotifyReady)
	log.Info("hipcd ready")

	err = manager.LoopProcess(ctx)
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return err
}

// registerConfiguredService reserves entry's name through smClient and
// hosts it on manager: a plain passthroughSession for an ordinary
// service, or a passthroughMitmService (plus its IMitmQueryService port)
// when entry.Mitm is set.
func registerConfiguredService(ctx context.Context, smClient sm.ServiceManagerClient, manager *ipc.ServerManager, entry config.ServiceEntry, log *logrus.Entry) error {
	resp, err := smClient.RegisterService(ctx, entry.Name, entry.MaxSessions)
	if err != nil {
		return fmt.Errorf("hipcd: register %q: %w", entry.Name, err)
	}

	if !entry.Mitm {
		if err := manager.RegisterServer(kernel.Handle(resp.PortHandle), entry.Name, func() ipc.SessionObject {
			return passthroughSession{}
		}); err != nil {
			return fmt.Errorf("hipcd: host %q: %w", entry.Name, err)
		}
		log.WithField("service", entry.Name).Info("hosting service")
		return nil
	}

	mitmResp, err := smClient.AtmosphereInstallMitm(ctx, entry.Name)
	if err != nil {
		return fmt.Errorf("hipcd: install mitm for %q: %w", entry.Name, err)
	}

	svc := passthroughMitmService{}
	if err := manager.RegisterMitmServer(kernel.Handle(mitmResp.PortHandle), entry.Name, svc.NewMitmInstance); err != nil {
		return fmt.Errorf("hipcd: host %q: %w", entry.Name, err)
	}
	if err := manager.RegisterServer(kernel.Handle(mitmResp.QueryHandle), entry.Name+".mitm-query", func() ipc.SessionObject {
		return ipc.NewMitmQueryService(svc)
	}); err != nil {
		return fmt.Errorf("hipcd: host %q: %w", entry.Name, err)
	}
	log.WithField("service", entry.Name).Info("hosting service with mitm installed")
	return nil
}

// smUnregistrar adapts sm.ServiceManagerClient's context-taking RPCs to the
// bare ipc.ServiceUnregistrar interface ServerManager holds onto.
type smUnregistrar struct {
	client sm.ServiceManagerClient
}

func (u smUnregistrar) UnregisterService(name string) error {
	_, err := u.client.UnregisterService(context.Background(), name)
	return err
}

func (u smUnregistrar) AtmosphereUninstallMitm(name string) error {
	_, err := u.client.AtmosphereUninstallMitm(context.Background(), name)
	return err
}
