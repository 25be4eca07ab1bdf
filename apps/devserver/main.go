package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elimucloud/dawati/apps/devserver/devapi"
	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/resource"
	emailsvc "github.com/elimucloud/dawati/services/email"
	logsvc "github.com/elimucloud/dawati/services/logger"
	"github.com/elimucloud/dawati/storage/database"
	inmemdb "github.com/elimucloud/dawati/storage/database/inmem"
	"github.com/elimucloud/dawati/storage/database/sqlxrepo"
)

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, "DEVSERVER : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up the record store; in-memory unless a DB user is configured
	var repo resource.Repository
	if conf.Database.User != "" {
		db, err := database.Open(conf)
		errAndDie(logger, err)
		defer db.Close()
		errAndDie(logger, database.Migrate(context.Background(), db, "up"))
		repo = sqlxrepo.NewRecordRepository(db)
	} else {
		repo = inmemdb.NewRecordRepository(inmemdb.Open())
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	svc := devapi.NewService(repo, mailSvc, logger)

	authn := devapi.NewAuthenticator(conf)
	errAndDie(logger, seedAccounts(authn))

	// start API server
	app := devapi.NewServer(&devapi.Options{
		Addr:          conf.Server.Addr,
		Conf:          conf,
		Logger:        logger,
		Service:       svc,
		Authenticator: authn,
	})

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			logger.Error("server shutdown", err)
		}
	}()

	logger.Info("starting devserver on " + conf.Server.Addr)
	app.Start()
}

// seedAccounts registers the fixture sign-in accounts the dev environment
// ships with.
func seedAccounts(authn *devapi.Authenticator) error {
	seeds := []struct {
		username, email, password string
		roles                     []string
	}{
		{"admin", "admin@localhost", "LocalAdmin123", []string{resource.RoleAdminPrincipal}},
		{"manager", "manager@localhost", "LocalManager123", []string{resource.RoleManager}},
		{"teacher", "teacher@localhost", "LocalTeacher123", []string{resource.RoleTeacher}},
		{"student", "student@localhost", "LocalStudent123", []string{resource.RoleStudent}},
	}
	for _, s := range seeds {
		if err := authn.Register(s.username, s.email, s.password, s.roles); err != nil {
			return err
		}
	}
	return nil
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
