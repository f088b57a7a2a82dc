package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/term"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/notification"
	"github.com/trezcool/practicum/core/session"
	"github.com/trezcool/practicum/core/student"
	"github.com/trezcool/practicum/core/user"
	"github.com/trezcool/practicum/storage/kv"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// suggestionRatio is the similarity above which an unknown command gets a suggestion.
const suggestionRatio = 0.6

var commands = []string{"adduser", "deluser", "users", "students", "notify", "notifications", "migrate"}

type commandLine struct {
	out           io.Writer
	logger        core.Logger
	kv            kv.Store
	registrar     *session.Registrar
	dir           *user.Directory
	students      *student.Store
	notifications *notification.Store
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL -role ROLE [-schoolid ID] - create an account, the password is prompted")
	fmt.Fprintln(cli.out, "  deluser -id ID - delete an account")
	fmt.Fprintln(cli.out, "  users - list the accounts")
	fmt.Fprintln(cli.out, "  students - list the student roster")
	fmt.Fprintln(cli.out, "  notify -title TITLE [-description TEXT] - announce a new activity to every student")
	fmt.Fprintln(cli.out, "  notifications -user ID - list the notifications of a user")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command on the sql storage")
}

// suggest returns the known command closest to name, if any is close enough.
func suggest(name string) string {
	var (
		best      string
		bestRatio float64
	)
	for _, cmd := range commands {
		m := difflib.NewMatcher(strings.Split(name, ""), strings.Split(cmd, ""))
		if r := m.Ratio(); r > bestRatio {
			best, bestRatio = cmd, r
		}
	}
	if bestRatio < suggestionRatio {
		return ""
	}
	return best
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", string(user.RoleStudent), "One of student, instructor, supervisor, admin.")
	addUserSchoolID := addUserCmd.String("schoolid", "", "The user's school ID (optional).")

	delUserCmd := flag.NewFlagSet("deluser", flag.ContinueOnError)
	delUserCmd.SetOutput(cli.out)
	delUserID := delUserCmd.String("id", "", "The user's ID.")

	notifyCmd := flag.NewFlagSet("notify", flag.ContinueOnError)
	notifyCmd.SetOutput(cli.out)
	notifyTitle := notifyCmd.String("title", "", "The activity title.")
	notifyDescription := notifyCmd.String("description", "", "The activity description.")

	notificationsCmd := flag.NewFlagSet("notifications", flag.ContinueOnError)
	notificationsCmd.SetOutput(cli.out)
	notificationsUser := notificationsCmd.String("user", "", "The recipient's ID.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		na := user.NewAccount{
			Name:     *addUserName,
			Email:    *addUserEmail,
			Secret:   string(pwd),
			Role:     user.Role(*addUserRole),
			SchoolID: core.CleanStringPtr(addUserSchoolID),
		}
		return cli.addUser(na)

	case "deluser":
		if err := delUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *delUserID == "" {
			delUserCmd.Usage()
			return errHelp
		}
		return cli.delUser(*delUserID)

	case "users":
		return cli.listUsers()

	case "students":
		return cli.listStudents()

	case "notify":
		if err := notifyCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if core.CleanString(*notifyTitle) == "" {
			notifyCmd.Usage()
			return errHelp
		}
		return cli.notify(*notifyTitle, *notifyDescription)

	case "notifications":
		if err := notificationsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *notificationsUser == "" {
			notificationsCmd.Usage()
			return errHelp
		}
		return cli.listNotifications(*notificationsUser)

	case "migrate":
		if len(args) < 3 {
			fmt.Fprintln(cli.out, "Usage: migrate up|up-by-one|up-to VERSION|down|down-to VERSION|redo|reset|status|version")
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		if s := suggest(args[1]); s != "" {
			fmt.Fprintf(cli.out, "unknown command %q, did you mean %q?\n", args[1], s)
		}
		cli.printUsage()
		return errHelp
	}
}
