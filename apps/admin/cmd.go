package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/engine"
	"github.com/elimucloud/dawati/core/resource"
	"github.com/elimucloud/dawati/core/session"
	"github.com/elimucloud/dawati/gateway"
	"github.com/elimucloud/dawati/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = runMigrations     // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf *core.Config
	sess *session.Session
	gw   *gateway.Client
	eng  *engine.Engine
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME                                    - sign in; the password is prompted next")
	fmt.Fprintln(cli.out, "  logout                                                      - sign out and drop the cached views")
	fmt.Fprintln(cli.out, "  list -kind KIND [-deleted]                                  - list records of a kind")
	fmt.Fprintln(cli.out, "  get -kind KIND -id ID                                       - show one record")
	fmt.Fprintln(cli.out, "  create -kind KIND -name NAME [-email EMAIL] [-role ROLE] [-started YYYY-MM-DD]")
	fmt.Fprintln(cli.out, "  edit -kind KIND -id ID -name NAME [-email EMAIL]            - edit a record")
	fmt.Fprintln(cli.out, "  transition -kind KIND -id ID -name NAME [-reason R -days N] - apply a lifecycle transition")
	fmt.Fprintln(cli.out, "  delete -kind KIND -id ID                                    - soft-delete a record")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                      - run devserver DB migrations")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginUname := loginCmd.String("username", "", "The account's username. The password will be prompted next.")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listKind := listCmd.String("kind", "", "The record kind: staff|teacher|student|group|course.")
	listDeleted := listCmd.Bool("deleted", false, "Include soft-deleted records.")

	getCmd := flag.NewFlagSet("get", flag.ExitOnError)
	getKind := getCmd.String("kind", "", "The record kind.")
	getID := getCmd.String("id", "", "The record id.")

	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	createKind := createCmd.String("kind", "", "The record kind.")
	createName := createCmd.String("name", "", "The record's display name.")
	createEmail := createCmd.String("email", "", "The person's email (person kinds only).")
	createRole := createCmd.String("role", "", "The person's role (person kinds only).")
	createStarted := createCmd.String("started", "", "Work start date, YYYY-MM-DD. Defaults to today.")

	editCmd := flag.NewFlagSet("edit", flag.ExitOnError)
	editKind := editCmd.String("kind", "", "The record kind.")
	editID := editCmd.String("id", "", "The record id.")
	editName := editCmd.String("name", "", "The new display name.")
	editEmail := editCmd.String("email", "", "The new email (person kinds only).")

	transitionCmd := flag.NewFlagSet("transition", flag.ExitOnError)
	transitionKind := transitionCmd.String("kind", "", "The record kind.")
	transitionID := transitionCmd.String("id", "", "The record id.")
	transitionName := transitionCmd.String("name", "", "The transition name, e.g. terminate, freeze.")
	transitionReason := transitionCmd.String("reason", "", "Leave reason (request-leave only).")
	transitionDays := transitionCmd.Int("days", 0, "Leave duration in days (request-leave only).")

	deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)
	deleteKind := deleteCmd.String("kind", "", "The record kind.")
	deleteID := deleteCmd.String("id", "", "The record id.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginUname, string(pwd))
	case "logout":
		return cli.logout(ctx)
	case "list":
		if err := listCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, err := parseKind(*listKind, listCmd)
		if err != nil {
			return err
		}
		return cli.list(ctx, kind, *listDeleted)
	case "get":
		if err := getCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, err := parseKind(*getKind, getCmd)
		if err != nil {
			return err
		}
		if *getID == "" {
			getCmd.Usage()
			return errHelp
		}
		return cli.get(ctx, kind, *getID)
	case "create":
		if err := createCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createKind == "" || *createName == "" {
			createCmd.Usage()
			return errHelp
		}
		return cli.create(ctx, resource.NewRecord{
			Kind:          *createKind,
			Name:          *createName,
			Email:         *createEmail,
			Role:          *createRole,
			WorkStartedAt: *createStarted,
		})
	case "edit":
		if err := editCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *editKind == "" || *editID == "" || *editName == "" {
			editCmd.Usage()
			return errHelp
		}
		return cli.edit(ctx, resource.EditRecord{
			ID:    *editID,
			Kind:  *editKind,
			Name:  *editName,
			Email: *editEmail,
		})
	case "transition":
		if err := transitionCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, err := parseKind(*transitionKind, transitionCmd)
		if err != nil {
			return err
		}
		if *transitionID == "" || *transitionName == "" {
			transitionCmd.Usage()
			return errHelp
		}
		return cli.transition(ctx, kind, *transitionID, resource.Transition(*transitionName), *transitionReason, *transitionDays)
	case "delete":
		if err := deleteCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, err := parseKind(*deleteKind, deleteCmd)
		if err != nil {
			return err
		}
		if *deleteID == "" {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.eng.Delete(ctx, kind, *deleteID)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, username, password string) error {
	token, err := cli.gw.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := cli.sess.SetToken(ctx, token); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "signed in as %s\n", username)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	cli.eng.Cache().Clear()
	if err := cli.sess.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "signed out")
	return nil
}

func (cli *commandLine) list(ctx context.Context, kind resource.Kind, includeDeleted bool) error {
	records, err := cli.eng.List(ctx, kind, includeDeleted)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROLE\tSTATE")
	for i := range records {
		rec := &records[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.Name, rec.Role, rec.State())
	}
	return tw.Flush()
}

func (cli *commandLine) get(ctx context.Context, kind resource.Kind, id string) error {
	rec, err := cli.eng.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	cli.printRecord(rec)
	return nil
}

func (cli *commandLine) create(ctx context.Context, payload resource.NewRecord) error {
	rec, err := cli.eng.Create(ctx, payload)
	if err != nil {
		return err
	}
	cli.printRecord(rec)
	return nil
}

func (cli *commandLine) edit(ctx context.Context, payload resource.EditRecord) error {
	rec, err := cli.eng.Edit(ctx, payload)
	if err != nil {
		return err
	}
	cli.printRecord(rec)
	return nil
}

func (cli *commandLine) transition(ctx context.Context, kind resource.Kind, id string, tr resource.Transition, reason string, days int) error {
	var payload interface{}
	if tr == resource.TransitionRequestLeave {
		payload = resource.LeaveRequest{Reason: reason, Days: days}
	}
	rec, err := cli.eng.Perform(ctx, kind, id, tr, payload)
	if err != nil {
		return err
	}
	if rec != nil {
		cli.printRecord(rec)
	} else {
		fmt.Fprintf(cli.out, "%s %s acknowledged\n", kind, tr)
	}
	return nil
}

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return migrateFunc(ctx, cli.conf, args[0], arguments...)
}

func runMigrations(ctx context.Context, conf *core.Config, command string, args ...string) error {
	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	defer db.Close()
	return database.Migrate(ctx, db, command, args...)
}

func (cli *commandLine) printRecord(rec *resource.Record) {
	fmt.Fprintf(cli.out, "ID:      %s\n", rec.ID)
	fmt.Fprintf(cli.out, "Kind:    %s\n", rec.Kind)
	fmt.Fprintf(cli.out, "Name:    %s\n", rec.Name)
	if rec.Kind.IsPerson() {
		fmt.Fprintf(cli.out, "Email:   %s\n", rec.Email)
		fmt.Fprintf(cli.out, "Role:    %s\n", rec.Role)
	}
	fmt.Fprintf(cli.out, "State:   %s\n", rec.State())
	if rec.WorkStartedAt.Valid {
		fmt.Fprintf(cli.out, "Started: %s\n", rec.WorkStartedAt.Time.Format("2006-01-02"))
	}
	if rec.WorkEndedAt.Valid {
		fmt.Fprintf(cli.out, "Ended:   %s\n", rec.WorkEndedAt.Time.Format("2006-01-02"))
	}
	for _, le := range rec.LeaveHistory {
		end := "open"
		if le.End.Valid {
			end = le.End.Time.Format("2006-01-02")
		}
		fmt.Fprintf(cli.out, "Leave:   %s .. %s (%s)\n", le.Start.Format("2006-01-02"), end, le.Reason)
	}
}

func parseKind(s string, fs *flag.FlagSet) (resource.Kind, error) {
	kind := resource.Kind(s)
	if !kind.Valid() {
		fs.Usage()
		return "", errHelp
	}
	return kind, nil
}
