package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/user"
)

// addUser creates an account. Students join the roster.
func (cli *commandLine) addUser(na user.NewAccount) error {
	created, err := cli.registrar.Register(context.Background(), na)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s %s (%s)\n", created.Role, created.Email, created.ID)
	return nil
}

// delUser deletes an account, and its roster entry for students.
func (cli *commandLine) delUser(id string) error {
	ctx := context.Background()
	usr, err := cli.dir.Find(id)
	if err != nil {
		return err
	}
	if err := cli.dir.Delete(ctx, id); err != nil {
		return err
	}
	if usr.IsStudent() {
		if err := cli.students.Remove(ctx, id); err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}
	}
	fmt.Fprintf(cli.out, "deleted %s\n", usr.Email)
	return nil
}

func (cli *commandLine) listUsers() error {
	return printUsers(cli, cli.dir.All())
}

func (cli *commandLine) listStudents() error {
	return printUsers(cli, cli.students.Students())
}

func printUsers(cli *commandLine, users []user.User) error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSCHOOL ID")
	for _, usr := range users {
		schoolID := "-"
		if usr.SchoolID != nil {
			schoolID = *usr.SchoolID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", usr.ID, usr.Name, usr.Email, usr.Role, schoolID)
	}
	return w.Flush()
}
