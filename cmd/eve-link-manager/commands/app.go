package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/grafana/eve-link-manager/pkg/config"
	"github.com/grafana/eve-link-manager/pkg/eveng"
	"github.com/grafana/eve-link-manager/pkg/hostlink"
	"github.com/grafana/eve-link-manager/pkg/linkops"
	"github.com/grafana/eve-link-manager/pkg/metrics"
	"github.com/grafana/eve-link-manager/pkg/runtime"
	"github.com/grafana/eve-link-manager/pkg/topology"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Platform is the server the lab topology is listed from
type Platform interface {
	topology.Source
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
}

// Connector returns the Platform for the given client configuration
type Connector func(config eveng.ClientConfig, log logrus.FieldLogger) (Platform, error)

// PasswordReader prompts the user for the password
type PasswordReader func(prompt string) (string, error)

// Option customizes the dependencies of the commands
type Option func(a *app)

// WithConnector sets the function used for connecting to the EVE-NG server
func WithConnector(c Connector) Option {
	return func(a *app) {
		a.connector = c
	}
}

// WithLinkAPI sets the API for managing host interfaces
func WithLinkAPI(links hostlink.LinkAPI) Option {
	return func(a *app) {
		a.links = links
	}
}

// WithOutput sets the writers for the output of the commands and the logs
func WithOutput(out, errOut io.Writer) Option {
	return func(a *app) {
		a.out = out
		a.errOut = errOut
	}
}

// WithPasswordReader sets the function used for prompting the password
func WithPasswordReader(r PasswordReader) Option {
	return func(a *app) {
		a.readPassword = r
	}
}

func connectEVE(config eveng.ClientConfig, log logrus.FieldLogger) (Platform, error) {
	client, err := eveng.NewClient(config, log)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// readTerminalPassword reads the password from the terminal without echoing it
func readTerminalPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: password not configured and stdin is not a terminal", config.ErrInvalidConfig)
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return string(password), nil
}

// flags defined in the root command
type globalFlags struct {
	configFile  string
	envFile     string
	host        string
	username    string
	password    string
	lab         string
	insecure    bool
	tenant      int
	wrapper     string
	sudo        bool
	dryRun      bool
	debug       bool
	logFormat   string
	metricsFile string
}

// app maintains the state shared by the commands
type app struct {
	env          runtime.Environment
	connector    Connector
	links        hostlink.LinkAPI
	readPassword PasswordReader
	out          io.Writer
	errOut       io.Writer

	flags   globalFlags
	config  *config.Config
	log     *logrus.Logger
	metrics *metrics.Collector
}

func newApp(env runtime.Environment, opts ...Option) *app {
	a := &app{
		env:          env,
		connector:    connectEVE,
		readPassword: readTerminalPassword,
	}

	for _, o := range opts {
		o(a)
	}

	if a.links == nil {
		a.links = hostlink.DefaultLinkAPI()
	}

	return a
}

// setup initializes the logger, the configuration and the metrics before running a command
func (a *app) setup(cmd *cobra.Command) error {
	log, err := newLogger(cmd.ErrOrStderr(), a.flags.debug, a.flags.logFormat)
	if err != nil {
		return err
	}
	a.log = log

	c, err := config.Load(config.Sources{
		File:    a.flags.configFile,
		EnvFile: a.flags.envFile,
		Vars:    a.env.Vars(),
	})
	if err != nil {
		return err
	}
	a.applyFlags(cmd, c)
	a.config = c

	a.metrics, err = metrics.NewCollector(nil)
	if err != nil {
		return err
	}

	return nil
}

func newLogger(out io.Writer, debug bool, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	switch format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}

	return log, nil
}

// applyFlags overrides the configuration with the flags set in the command line
func (a *app) applyFlags(cmd *cobra.Command, c *config.Config) {
	changed := cmd.Flags().Changed

	if changed("host") {
		c.Host = a.flags.host
	}
	if changed("username") {
		c.Username = a.flags.username
	}
	if changed("password") {
		c.Password = a.flags.password
	}
	if changed("lab") {
		c.Lab = a.flags.lab
	}
	if changed("insecure") {
		c.Insecure = a.flags.insecure
	}
	if changed("tenant") {
		c.Tenant = a.flags.tenant
	}
	if changed("wrapper") {
		c.Wrapper = a.flags.wrapper
	}
	if changed("sudo") {
		c.Sudo = a.flags.sudo
	}
}

// finish exports the metrics, if requested, after the command completes
func (a *app) finish(err error) error {
	if a.flags.metricsFile == "" || a.metrics == nil {
		return err
	}

	if writeErr := a.metrics.WriteTextfile(a.flags.metricsFile); writeErr != nil {
		a.log.WithError(writeErr).Error("exporting metrics")
		return errors.Join(err, writeErr)
	}

	return err
}

// session is an open connection to the EVE-NG server with the snapshot of the lab
type session struct {
	lab      eveng.LabPath
	snapshot *topology.Snapshot
	platform Platform
	log      logrus.FieldLogger
}

// Close logs out from the server
func (s *session) Close() {
	if err := s.platform.Logout(context.Background()); err != nil {
		s.log.WithError(err).Warn("logging out from EVE-NG")
	}
}

// connect logs in the EVE-NG server and builds the snapshot of the configured lab
func (a *app) connect(ctx context.Context) (*session, error) {
	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	lab, err := a.config.LabPath()
	if err != nil {
		return nil, err
	}

	if a.config.Password == "" {
		password, err := a.readPassword(fmt.Sprintf("EVE-NG password for %s: ", a.config.Username))
		if err != nil {
			return nil, err
		}
		a.config.Password = password
	}

	platform, err := a.connector(a.config.ClientConfig(), a.log)
	if err != nil {
		return nil, err
	}

	if err := platform.Login(ctx); err != nil {
		return nil, err
	}

	s := &session{lab: lab, platform: platform, log: a.log}

	s.snapshot, err = topology.Build(ctx, platform, lab.API())
	if err != nil {
		s.Close()
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"lab":        lab.String(),
		"devices":    len(s.snapshot.Devices()),
		"interfaces": s.snapshot.InterfaceCount(),
	}).Info("retrieved lab topology")

	return s, nil
}

// executor returns an executor for the switcher with the settings of the command line
func (a *app) executor(switcher linkops.Switcher) *linkops.Executor {
	if a.flags.dryRun {
		a.log.Info("running in dry run mode, no changes will be made")
	}

	return linkops.NewExecutor(
		switcher,
		linkops.WithDryRun(a.flags.dryRun),
		linkops.WithLogger(a.log),
		linkops.WithRecorder(a.metrics),
	)
}

// wrapper returns the switcher for the interfaces of the lab
func (a *app) wrapper(lab eveng.LabPath) eveng.Wrapper {
	return eveng.NewWrapper(a.env.Executor(), lab, a.config.WrapperConfig())
}
