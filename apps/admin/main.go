package main

import (
	"context"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/notification"
	"github.com/trezcool/practicum/core/session"
	"github.com/trezcool/practicum/core/student"
	"github.com/trezcool/practicum/core/user"
	"github.com/trezcool/practicum/services/email"
	"github.com/trezcool/practicum/services/logger"
	"github.com/trezcool/practicum/services/notify"
	"github.com/trezcool/practicum/storage/kv"
	"github.com/trezcool/practicum/storage/kv/rediskv"
)

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	mailSvc := emailsvc.NewService(std, conf, logger)

	ctx := context.Background()
	store, err := kv.Open(ctx, conf, logger)
	if err != nil {
		logger.Fatal("opening storage", err)
	}

	cli, err := newCommandLine(ctx, conf, store, logger, mailSvc)
	if err != nil {
		logger.Fatal("loading stores", err)
	}
	err = cli.run(os.Args)

	// flush pending emails before exiting
	if w, ok := mailSvc.(interface{ Wait() }); ok {
		w.Wait()
	}
	_ = store.Close()
	logger.Close()

	if err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// newCommandLine loads the stores kept in store. Notifications are mailed to students,
// and published on Redis when store is a Redis backend.
func newCommandLine(ctx context.Context, conf *core.Config, store kv.Store, logger core.Logger, mailSvc core.EmailService) (*commandLine, error) {
	dir, err := user.NewDirectory(ctx, store, logger)
	if err != nil {
		return nil, errors.Wrap(err, "loading directory")
	}
	students, err := student.NewStore(ctx, store, logger)
	if err != nil {
		return nil, errors.Wrap(err, "loading students")
	}

	publishers := []notification.Publisher{notifysvc.NewEmailPublisher(students, mailSvc)}
	if rs, ok := store.(*rediskv.Store); ok {
		publishers = append(publishers, notifysvc.NewRedisPublisher(rs.Client(), conf.Redis.NotifyChannel))
	}
	notifications, err := notification.NewStore(ctx, store, students, logger, publishers...)
	if err != nil {
		return nil, errors.Wrap(err, "loading notifications")
	}

	registrar := session.NewRegistrar(dir, user.NewValidator(), logger)
	registrar.SetHook(user.RoleStudent, session.StudentHook(students))

	return &commandLine{
		out:           os.Stdout,
		logger:        logger,
		kv:            store,
		registrar:     registrar,
		dir:           dir,
		students:      students,
		notifications: notifications,
	}, nil
}
