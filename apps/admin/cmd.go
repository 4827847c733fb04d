package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/studywall/apps/api/echo"
	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/core/week"
	"github.com/trezcool/studywall/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	db       *sqlx.DB
	topicSvc *topic.Service
	calendar week.Calendar
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]            - run a goose command (up, down, status, redo, up-to VERSION...)")
	_, _ = fmt.Fprintln(cli.out, "  week [-token 2024W07 | -date 2024-02-14] - show a week, the current one by default")
	_, _ = fmt.Fprintln(cli.out, "  progress -topic ID                   - show the progress of a topic and its goals")
	_, _ = fmt.Fprintln(cli.out, "  deletetopic -id ID                   - delete a topic with its goals and tasks")
	_, _ = fmt.Fprintln(cli.out, "  token -user ID [-username NAME]      - issue an API token")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	weekCmd := cli.newFlagSet("week")
	weekToken := weekCmd.String("token", "", "A week token, e.g. 2024W07.")
	weekDate := weekCmd.String("date", "", "Any day of the week, as YYYY-MM-DD.")

	progressCmd := cli.newFlagSet("progress")
	progressTopic := progressCmd.String("topic", "", "The topic id.")

	deleteCmd := cli.newFlagSet("deletetopic")
	deleteID := deleteCmd.String("id", "", "The topic id.")

	tokenCmd := cli.newFlagSet("token")
	tokenUser := tokenCmd.String("user", "", "The user id the token is issued to.")
	tokenUname := tokenCmd.String("username", "", "The user's name.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "week":
		if err := parseFlags(weekCmd, args[2:]); err != nil {
			return err
		}
		return cli.week(*weekToken, *weekDate)
	case "progress":
		if err := parseFlags(progressCmd, args[2:]); err != nil {
			return err
		}
		if *progressTopic == "" {
			progressCmd.Usage()
			return errHelp
		}
		return cli.progress(ctx, *progressTopic)
	case "deletetopic":
		if err := parseFlags(deleteCmd, args[2:]); err != nil {
			return err
		}
		if *deleteID == "" {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.deleteTopic(ctx, *deleteID)
	case "token":
		if err := parseFlags(tokenCmd, args[2:]); err != nil {
			return err
		}
		if *tokenUser == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(core.Actor{ID: *tokenUser, Username: *tokenUname})
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) week(token, date string) error {
	switch {
	case token != "" && date != "":
		return errors.New("-token and -date are mutually exclusive")
	case date != "":
		d, err := time.ParseInLocation(time.DateOnly, date, cli.calendar.Location)
		if err != nil {
			return err
		}
		token = cli.calendar.IDFor(d)
	case token == "":
		token = cli.calendar.Current()
	}

	ov, err := cli.calendar.Overview(token)
	if err != nil {
		return err
	}
	current := ""
	if ov.IsCurrent {
		current = " (current)"
	}
	_, _ = fmt.Fprintf(cli.out, "%s%s: %s - %s\n", ov.Token, current, ov.Start.Format(time.DateOnly), ov.End.Format(time.DateOnly))
	_, _ = fmt.Fprintf(cli.out, "previous: %s, next: %s\n", ov.Previous, ov.Next)
	return nil
}

func (cli *commandLine) progress(ctx context.Context, topicID string) error {
	tree, err := cli.topicSvc.FetchTree(ctx, topicID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%s: %d%%\n", tree.Title, tree.Progress)
	for _, g := range tree.Goals {
		_, _ = fmt.Fprintf(cli.out, "  %s: %d%% (%d tasks)\n", g.Title, g.Progress, len(g.Tasks))
	}
	return nil
}

func (cli *commandLine) deleteTopic(ctx context.Context, topicID string) error {
	err := cli.topicSvc.DeleteTopic(ctx, topicID)
	var partial *topic.PartialCascadeError
	if errors.As(err, &partial) {
		_, _ = fmt.Fprintf(cli.out, "deleted %d entities, still pending:\n", partial.Deleted)
		for _, ref := range partial.Pending {
			_, _ = fmt.Fprintf(cli.out, "  %s %s\n", ref.Kind, ref.ID)
		}
		return err
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "topic %s deleted\n", topicID)
	return nil
}

func (cli *commandLine) token(actor core.Actor) error {
	token, err := echoapi.GenerateToken(echoapi.NewClaims(actor, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, token)
	return nil
}
