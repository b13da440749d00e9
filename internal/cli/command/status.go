package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/bankline-go/internal/apiclient"
	"github.com/yndnr/bankline-go/internal/cli/output"
	"github.com/yndnr/bankline-go/internal/core/domain"
	"github.com/yndnr/bankline-go/internal/telemetry/logger"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the session phase and credential store",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-wait",
				Usage: "Print immediately instead of waiting for the startup check",
			},
		},
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}
	mgr, err := rt.Session(c.Context)
	if err != nil {
		return err
	}

	state := mgr.State()
	if !c.Bool("no-wait") {
		if state, err = mgr.WaitResolved(c.Context); err != nil {
			return err
		}
	}

	return render(c, rt, statusView{
		Phase:      state.Phase.String(),
		Resolved:   state.Resolved,
		Generation: state.Generation,
		User:       state.Profile.DisplayName(),
		Reason:     state.Reason,
		ChangedAt:  state.ChangedAt,
		Server:     rt.Config.Server.BaseURL,
		Backend:    rt.Config.Store.Backend,
		StorePath:  rt.Config.Store.Path,
		Instance:   mgr.ID(),
	})
}

// statusView is the printable session summary.
type statusView struct {
	Phase      string    `json:"phase" yaml:"phase"`
	Resolved   bool      `json:"resolved" yaml:"resolved"`
	Generation uint64    `json:"generation" yaml:"generation"`
	User       string    `json:"user,omitempty" yaml:"user,omitempty"`
	Reason     string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	ChangedAt  time.Time `json:"changed_at" yaml:"changed_at"`
	Server     string    `json:"server" yaml:"server"`
	Backend    string    `json:"store_backend" yaml:"store_backend"`
	StorePath  string    `json:"store_path,omitempty" yaml:"store_path,omitempty"`
	Instance   string    `json:"instance" yaml:"instance"`
}

// Table lays the summary out as KEY/VALUE rows; wide adds the instance.
func (v statusView) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"KEY", "VALUE"}}
	t.AddRow("phase", v.Phase)
	t.AddRow("resolved", output.FormatValue(v.Resolved))
	t.AddRow("user", output.FormatValue(v.User))
	t.AddRow("generation", fmt.Sprint(v.Generation))
	t.AddRow("changed", output.FormatValue(v.ChangedAt))
	if v.Reason != "" {
		t.AddRow("reason", v.Reason)
	}
	t.AddRow("server", v.Server)
	t.AddRow("store", v.Backend)
	if wide {
		t.AddRow("store_path", output.FormatValue(v.StorePath))
		t.AddRow("instance", v.Instance)
	}
	return t
}

// RequestCommand returns the request command.
func RequestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Aliases:   []string{"req"},
		Usage:     "Send an authorized request to the bank API",
		ArgsUsage: "METHOD PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "JSON request body",
			},
		},
		Action: requestAction,
	}
}

var requestMethods = map[string]struct{}{
	http.MethodGet: {}, http.MethodPost: {}, http.MethodPut: {},
	http.MethodPatch: {}, http.MethodDelete: {},
}

func requestAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: request METHOD PATH")
	}
	method := strings.ToUpper(c.Args().Get(0))
	if _, ok := requestMethods[method]; !ok {
		return fmt.Errorf("unsupported method %q", method)
	}
	path := c.Args().Get(1)

	var body any
	if data := c.String("data"); data != "" {
		if !json.Valid([]byte(data)) {
			return fmt.Errorf("--data is not valid JSON")
		}
		body = json.RawMessage(data)
	}

	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}
	mgr, err := rt.Resolved(c.Context)
	if err != nil {
		return err
	}

	ctx, _ := apiclient.EnsureRequestID(c.Context)
	log := logger.L(ctx).With("method", method, "path", path)
	if !mgr.State().IsAuthenticated() {
		log.Debug("sending request without a session")
	}

	api, err := rt.Client()
	if err != nil {
		return err
	}

	var out any
	err = api.Do(ctx, method, path, body, &out)
	log.Debug("request finished", "error", err)
	switch {
	case errors.Is(err, apiclient.ErrEmptyBody):
		fmt.Fprintln(rt.Out, "(no content)")
		return nil
	case errors.Is(err, apiclient.ErrTransport):
		return domain.ErrNetwork.Wrap(err)
	case err != nil:
		return err
	}
	return render(c, rt, out)
}
