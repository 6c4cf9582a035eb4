package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/budgie-app/budgie/internal/api"
	"github.com/budgie-app/budgie/internal/buildinfo"
	"github.com/budgie-app/budgie/internal/cache"
	"github.com/budgie-app/budgie/internal/category"
	"github.com/budgie-app/budgie/internal/config"
	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/mutation"
	"github.com/budgie-app/budgie/internal/session"
	"github.com/budgie-app/budgie/internal/store"
)

// PasswordEnv supplies the password without prompting.
const PasswordEnv = "BUDGIE_PASSWORD"

// app holds the global flags and the clients built from them. Every
// invocation starts a fresh session; nothing is persisted but the config.
type app struct {
	configPath string
	apiURL     string
	username   string
	verbose    bool
	format     string

	cfg        *config.Config
	logger     *log.Logger
	client     *api.Client
	session    *session.Session
	store      *store.Store
	dispatcher *mutation.Dispatcher

	in *bufio.Reader
}

func (a *app) path() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.DefaultPath()
}

// load reads the config and applies flag overrides.
func (a *app) load(cmd *cobra.Command) error {
	if a.cfg != nil {
		return nil
	}
	path, err := a.path()
	if err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	if a.username != "" {
		cfg.Auth.Username = a.username
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	if a.verbose {
		level = log.DebugLevel
	}
	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:  level,
		Prefix: "budgie",
	})
	a.cfg = cfg
	a.logger.Debug("loaded config", "path", path, "api", cfg.API.BaseURL)
	return nil
}

// connect loads the config, logs in and builds the store and dispatcher.
func (a *app) connect(cmd *cobra.Command) error {
	if a.dispatcher != nil {
		return nil
	}
	if err := a.load(cmd); err != nil {
		return err
	}

	client, err := api.New(a.cfg.API.BaseURL,
		api.WithLogger(a.logger),
		api.WithTimeout(a.cfg.API.Timeout),
		api.WithUserAgent(buildinfo.UserAgent()),
	)
	if err != nil {
		return err
	}
	sess := session.New(client, a.logger)
	sess.Subscribe(func(s session.State) { a.logger.Debug("session state", "state", s) })

	username := a.cfg.Auth.Username
	if username == "" {
		if username, err = a.prompt(cmd, "Username: "); err != nil {
			return fmt.Errorf("reading username: %w", err)
		}
	}
	password := os.Getenv(PasswordEnv)
	if password == "" {
		if password, err = a.readPassword(cmd); err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
	}
	if err := sess.Login(cmd.Context(), username, password); err != nil {
		return err
	}

	mode := mutation.ModeInvalidate
	if a.cfg.Cache.Optimistic {
		mode = mutation.ModeOptimistic
	}
	a.client = client
	a.session = sess
	a.store = store.New(client, cache.New(), a.logger)
	a.dispatcher = mutation.New(client, a.store, mode, a.logger)
	return nil
}

func (a *app) reader(cmd *cobra.Command) *bufio.Reader {
	if a.in == nil {
		a.in = bufio.NewReader(cmd.InOrStdin())
	}
	return a.in
}

func (a *app) prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := a.reader(cmd).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo from a terminal, or a line from any other
// input.
func (a *app) readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := a.prompt(cmd, "Password: ")
	if err != nil {
		return "", err
	}
	return line, nil
}

// categories returns an index over the cached category list.
func (a *app) categories(cmd *cobra.Command) (*category.Index, error) {
	cats, err := a.store.Categories(cmd.Context())
	if err != nil {
		return nil, err
	}
	return category.NewIndex(cats), nil
}

// resolveCategory accepts a category id or exact name.
func (a *app) resolveCategory(cmd *cobra.Command, ref string) (model.Category, error) {
	idx, err := a.categories(cmd)
	if err != nil {
		return model.Category{}, err
	}
	if c, ok := idx.Get(ref); ok {
		return c, nil
	}
	if c, ok := idx.ByName(ref); ok {
		return c, nil
	}
	return model.Category{}, fmt.Errorf("unknown category %q", ref)
}
