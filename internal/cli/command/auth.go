package command

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/bankline-go/internal/cli/output"
	"github.com/yndnr/bankline-go/internal/cli/prompt"
	"github.com/yndnr/bankline-go/internal/core/domain"
)

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and store the session credential",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Username (prompted when omitted)",
			},
			&cli.BoolFlag{
				Name:  "password-stdin",
				Usage: "Read the password from standard input",
			},
		},
		Action: loginAction,
	}
}

func loginAction(c *cli.Context) error {
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}

	p := rt.Prompter()
	username := c.String("username")
	if username == "" {
		if username, err = p.Line("Username: "); err != nil {
			return fmt.Errorf("read username: %w", err)
		}
	}

	label := "Password: "
	if c.Bool("password-stdin") {
		label = ""
	}
	password, err := p.Password(label)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	mgr, err := rt.Resolved(c.Context)
	if err != nil {
		return err
	}

	spin := output.NewSpinner(rt.Err, "Signing in", isTerminal(rt.Err))
	spin.Start()
	res := mgr.Login(c.Context, username, password)
	spin.Stop()
	if !res.Success {
		return failed(res)
	}

	profile, _ := mgr.Profile()
	fmt.Fprintf(rt.Out, "Signed in as %s\n", profile.DisplayName())
	return nil
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the session and forget the stored credential",
		Action: logoutAction,
	}
}

func logoutAction(c *cli.Context) error {
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}
	mgr, err := rt.Session(c.Context)
	if err != nil {
		return err
	}

	wasSignedIn := mgr.State().HasToken()
	mgr.Logout(c.Context)

	if wasSignedIn {
		fmt.Fprintln(rt.Out, "Signed out")
	} else {
		fmt.Fprintln(rt.Out, "Not signed in")
	}
	return nil
}

// RegisterCommand returns the register command.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create a bank account login",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Password (prompted when omitted)"},
			&cli.StringFlag{Name: "full-name", Usage: "Full name"},
			&cli.StringFlag{Name: "email", Usage: "Email address"},
			&cli.StringSliceFlag{
				Name:    "field",
				Aliases: []string{"f"},
				Usage:   "Extra registration field as KEY=VALUE",
			},
		},
		Action: registerAction,
	}
}

func registerAction(c *cli.Context) error {
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}

	fields, err := parseFields(c.StringSlice("field"))
	if err != nil {
		return err
	}
	fields["username"] = c.String("username")

	password := c.String("password")
	if password == "" {
		if password, err = rt.Prompter().Password("Password: "); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}
	fields["password"] = password
	if v := c.String("full-name"); v != "" {
		fields["fullName"] = v
	}
	if v := c.String("email"); v != "" {
		fields["email"] = v
	}

	mgr, err := rt.Session(c.Context)
	if err != nil {
		return err
	}
	res := mgr.Register(c.Context, fields)
	if !res.Success {
		return failed(res)
	}

	fmt.Fprintf(rt.Out, "Registered %s. Run `bankline login` to sign in.\n", c.String("username"))
	return nil
}

// parseFields parses KEY=VALUE pairs.
func parseFields(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs)+4)
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q: want KEY=VALUE", pair)
		}
		fields[k] = v
	}
	return fields, nil
}

// WhoamiCommand returns the whoami command.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Fetch the profile again before printing",
			},
		},
		Action: whoamiAction,
	}
}

func whoamiAction(c *cli.Context) error {
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}
	mgr, err := rt.Resolved(c.Context)
	if err != nil {
		return err
	}

	if c.Bool("refresh") {
		if err := mgr.Refresh(c.Context); err != nil && !errors.Is(err, domain.ErrNotAuthenticated) {
			return err
		}
	}

	profile, err := mgr.Profile()
	if err != nil {
		return err
	}
	return render(c, rt, newProfileView(profile))
}

// profileView is the printable form of a profile.
type profileView struct {
	ID       string         `json:"id" yaml:"id"`
	Username string         `json:"username,omitempty" yaml:"username,omitempty"`
	FullName string         `json:"full_name" yaml:"full_name"`
	Email    string         `json:"email,omitempty" yaml:"email,omitempty"`
	Extra    map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func newProfileView(p *domain.UserProfile) profileView {
	return profileView{
		ID:       p.ID,
		Username: p.Username,
		FullName: p.FullName,
		Email:    p.Email,
		Extra:    p.Extra,
	}
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && prompt.IsTerminal(f)
}
