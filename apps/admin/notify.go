package main

import (
	"context"
	"fmt"
	"text/tabwriter"
)

// notify announces a new activity to every student of the roster.
func (cli *commandLine) notify(title, description string) error {
	created, err := cli.notifications.NotifyStudentsOfNewActivity(context.Background(), title, description)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "notified %d student(s)\n", len(created))
	return nil
}

func (cli *commandLine) listNotifications(userID string) error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tREAD\tCREATED AT")
	for _, n := range cli.notifications.ForUser(userID) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", n.ID, n.Type, n.Title, n.Read, n.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "\n%d unread\n", cli.notifications.UnreadCount(userID))
	return w.Flush()
}
